package miniaudio

import "sync"

type playbackMark struct {
	name     string
	position int
	callback func(string)
}

// playbackQueue buffers audio for the device callback and tracks marks by
// byte position inside the buffer.
type playbackQueue struct {
	mu    sync.Mutex
	audio []byte
	marks []playbackMark
}

func (q *playbackQueue) Append(audio []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.audio = append(q.audio, audio...)
}

func (q *playbackQueue) Mark(name string, callback func(string)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.marks = append(q.marks, playbackMark{name: name, position: len(q.audio), callback: callback})
}

func (q *playbackQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.audio = nil
	q.marks = nil
}

// Drain copies up to need bytes into out and fires every mark whose position
// has been reached. Marks fire on their own goroutine so the device callback
// never blocks on user code.
func (q *playbackQueue) Drain(out []byte, need int) {
	q.mu.Lock()
	n := copy(out[:min(need, len(out))], q.audio)
	q.audio = q.audio[n:]
	if len(q.audio) == 0 {
		q.audio = nil
	}

	passed := 0
	for i := range q.marks {
		if q.marks[i].position <= n {
			passed++
			continue
		}
		q.marks[i].position -= n
	}
	toCall := q.marks[:passed]
	q.marks = q.marks[passed:]
	q.mu.Unlock()

	for i := n; i < min(need, len(out)); i++ {
		out[i] = 0
	}

	if len(toCall) > 0 {
		go func() {
			for _, mark := range toCall {
				mark.callback(mark.name)
			}
		}()
	}
}
