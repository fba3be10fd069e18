package orchestration

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// wakeWordGate turns final transcripts into commands. A transcript counts
// once it mentions the wake phrase, or while the gate is still awake from an
// earlier one.
type wakeWordGate struct {
	phrase  string
	timeout time.Duration

	awake      bool
	awakeTimer *scheduledTask

	onAwake   func()
	onAsleep  func()
	onCommand func(command string)
}

func newWakeWordGate(phrase string, timeout time.Duration, clock Clock, dispatch func(func()) bool) *wakeWordGate {
	return &wakeWordGate{
		phrase:     strings.TrimSpace(phrase),
		timeout:    timeout,
		awakeTimer: newScheduledTask(clock, dispatch),
		onAwake:    func() {},
		onAsleep:   func() {},
		onCommand:  func(string) {},
	}
}

func (g *wakeWordGate) setWakePhrase(phrase string) {
	g.phrase = strings.TrimSpace(phrase)
}

func (g *wakeWordGate) handleTranscript(transcript string) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return
	}

	var command string
	if _, end, ok := lastIndexFold(transcript, g.phrase); ok {
		command = trimCommand(transcript[end:])
	} else if g.awake {
		command = transcript
	} else {
		return
	}

	g.wake()
	if command != "" {
		g.onCommand(command)
	}
}

func (g *wakeWordGate) wake() {
	g.awake = true
	g.onAwake()
	g.awakeTimer.schedule(g.timeout, g.sleep)
}

func (g *wakeWordGate) sleep() {
	if !g.awake {
		return
	}
	g.awake = false
	g.onAsleep()
}

// reset forgets the awake window without notifying anyone.
func (g *wakeWordGate) reset() {
	g.awake = false
	g.awakeTimer.cancel()
}

// lastIndexFold finds the last case-insensitive occurrence of substr in s and
// returns its byte offsets in s.
func lastIndexFold(s, substr string) (start, end int, ok bool) {
	if substr == "" {
		return 0, 0, false
	}
	width := utf8.RuneCountInString(substr)

	for start = len(s); start >= 0; {
		end = start
		runes := 0
		for end < len(s) && runes < width {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
			runes++
		}
		if runes == width && strings.EqualFold(s[start:end], substr) {
			return start, end, true
		}

		if start == 0 {
			break
		}
		_, size := utf8.DecodeLastRuneInString(s[:start])
		start -= size
	}
	return 0, 0, false
}

func trimCommand(command string) string {
	return strings.TrimSpace(strings.TrimLeftFunc(command, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}))
}
