package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	orchestration "github.com/koscakluka/ema-calendar/core"
	"github.com/koscakluka/ema-calendar/core/calendar"
	"github.com/koscakluka/ema-calendar/core/events"
	"github.com/koscakluka/ema-calendar/core/settings"
	"github.com/muesli/reflow/wordwrap"
)

type assistant interface {
	SubmitText(text string) error
	StartListening()
	StopListening()
	CancelSpeech()
	UpdateSettings(s settings.Settings) error
}

type settingsSaver interface {
	Save(s settings.Settings) error
}

type agendaSource interface {
	ForDate(date string) ([]calendar.Event, error)
}

type (
	sessionStateMsg string
	interimMsg      string
	chatMsg         events.Message
	speakingMsg     bool
	busyMsg         bool
	agendaMsg       []calendar.Event
	statusMsg       struct {
		kind    events.StatusKind
		message string
	}
)

const helpText = "Commands: /listen, /mute, /stop, /wake <phrase>, /digest on|off [HH:MM], /quit"

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	systemStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
	badgeStyle     = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("230"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

type model struct {
	assistant     assistant
	settingsSaver settingsSaver
	agendaSource  agendaSource
	settings      settings.Settings
	now           func() time.Time

	viewport viewport.Model
	input    textinput.Model
	ready    bool
	width    int

	messages []events.Message
	notes    []string
	agenda   []calendar.Event

	state    string
	status   statusMsg
	interim  string
	speaking bool
	busy     bool
}

func newModel(a assistant, saver settingsSaver, agenda agendaSource, s settings.Settings) *model {
	input := textinput.New()
	input.Placeholder = "Type a command or /help"
	input.Focus()

	return &model{
		assistant:     a,
		settingsSaver: saver,
		agendaSource:  agenda,
		settings:      s.Normalize(),
		now:           time.Now,
		input:         input,
		state:         orchestration.SessionStopped.String(),
	}
}

func (m *model) Init() tea.Cmd {
	for _, note := range m.notes {
		m.addSystemMessage(note)
	}
	return tea.Batch(textinput.Blink, m.loadAgenda())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.Reset()
			return m, m.submit(text)
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case chatMsg:
		m.messages = append(m.messages, events.Message(msg))
		m.refresh()
		if msg.Sender == events.SenderAssistant {
			return m, m.loadAgenda()
		}
		return m, nil

	case sessionStateMsg:
		m.state = string(msg)
		return m, nil

	case statusMsg:
		m.status = msg
		return m, nil

	case interimMsg:
		m.interim = string(msg)
		return m, nil

	case speakingMsg:
		m.speaking = bool(msg)
		return m, nil

	case busyMsg:
		m.busy = bool(msg)
		return m, nil

	case agendaMsg:
		m.agenda = msg
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) submit(text string) tea.Cmd {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		return m.runSlashCommand(text)
	}

	if err := m.assistant.SubmitText(text); err != nil {
		if errors.Is(err, orchestration.ErrBusy) {
			m.addSystemMessage("Still working on the last command.")
			return nil
		}
		m.addSystemMessage("Could not send the command: " + err.Error())
	}
	return nil
}

func (m *model) runSlashCommand(text string) tea.Cmd {
	fields := strings.Fields(text)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "/quit", "/exit":
		return tea.Quit

	case "/help":
		m.addSystemMessage(helpText)

	case "/listen":
		m.assistant.StartListening()

	case "/mute":
		m.assistant.StopListening()

	case "/stop":
		m.assistant.CancelSpeech()

	case "/wake":
		phrase := strings.TrimSpace(strings.Join(args, " "))
		if phrase == "" {
			m.addSystemMessage(fmt.Sprintf("The wake phrase is %q.", m.settings.WakePhrase))
			return nil
		}
		next := m.settings
		next.WakePhrase = phrase
		if m.applySettings(next) {
			m.addSystemMessage(fmt.Sprintf("Wake phrase set to %q.", phrase))
		}

	case "/digest":
		return m.runDigestCommand(args)

	default:
		m.addSystemMessage(fmt.Sprintf("Unknown command %s. %s", name, helpText))
	}
	return nil
}

func (m *model) runDigestCommand(args []string) tea.Cmd {
	if len(args) == 0 {
		state := "off"
		if m.settings.DigestEnabled {
			state = "on"
		}
		m.addSystemMessage(fmt.Sprintf("The daily digest is %s at %s.", state, m.settings.DigestTime))
		return nil
	}

	next := m.settings
	switch strings.ToLower(args[0]) {
	case "on":
		next.DigestEnabled = true
	case "off":
		next.DigestEnabled = false
	default:
		m.addSystemMessage("Usage: /digest on|off [HH:MM]")
		return nil
	}

	if len(args) > 1 {
		digestTime, err := settings.ParseDigestTime(args[1])
		if err != nil {
			m.addSystemMessage(err.Error())
			return nil
		}
		next.DigestTime = digestTime
	}

	if m.applySettings(next) {
		if next.DigestEnabled {
			m.addSystemMessage("Daily digest on at " + next.DigestTime + ".")
		} else {
			m.addSystemMessage("Daily digest off.")
		}
	}
	return nil
}

func (m *model) applySettings(next settings.Settings) bool {
	if err := m.assistant.UpdateSettings(next); err != nil {
		m.addSystemMessage("Invalid settings: " + err.Error())
		return false
	}
	m.settings = next.Normalize()
	if err := m.settingsSaver.Save(m.settings); err != nil {
		m.addSystemMessage("Settings apply now but could not be saved: " + err.Error())
	}
	return true
}

func (m *model) addSystemMessage(text string) {
	m.messages = append(m.messages, events.NewMessage(events.SenderSystem, text, ""))
	m.refresh()
}

func (m *model) loadAgenda() tea.Cmd {
	source := m.agendaSource
	today := calendar.FormatDate(m.now())
	return func() tea.Msg {
		agenda, err := source.ForDate(today)
		if err != nil {
			return nil
		}
		return agendaMsg(agenda)
	}
}

func (m *model) resize(width, height int) {
	m.width = width
	// title, agenda, interim, input and status lines
	viewportHeight := max(height-6, 3)

	if !m.ready {
		m.viewport = viewport.New(width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = viewportHeight
	}
	m.input.Width = max(width-4, 10)
	m.refresh()
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderMessages(m.messages, m.width))
	m.viewport.GotoBottom()
}

func renderMessages(messages []events.Message, width int) string {
	wrapAt := max(width-2, 20)

	var b strings.Builder
	for _, message := range messages {
		var line string
		switch message.Sender {
		case events.SenderUser:
			line = userStyle.Render("you") + " " + message.Text
		case events.SenderAssistant:
			line = assistantStyle.Render("ema") + " " + message.Text
		default:
			line = systemStyle.Render(message.Text)
		}
		b.WriteString(wordwrap.String(line, wrapAt))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *model) View() string {
	if !m.ready {
		return "Starting...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("ema calendar") + " " + m.badges() + "\n")
	b.WriteString(dimStyle.Render(renderAgenda(m.agenda)) + "\n")
	b.WriteString(m.viewport.View() + "\n")
	if m.interim != "" {
		b.WriteString(dimStyle.Render("… "+m.interim) + "\n")
	} else {
		b.WriteString("\n")
	}
	b.WriteString(m.input.View() + "\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m *model) badges() string {
	badges := []string{badgeStyle.Background(lipgloss.Color(stateColor(m.state))).Render(m.state)}
	if m.speaking {
		badges = append(badges, badgeStyle.Background(lipgloss.Color("99")).Render("speaking"))
	}
	if m.busy {
		badges = append(badges, badgeStyle.Background(lipgloss.Color("130")).Render("working"))
	}
	return strings.Join(badges, " ")
}

func stateColor(state string) string {
	switch state {
	case orchestration.SessionListening.String():
		return "28"
	case orchestration.SessionAwake.String():
		return "34"
	case orchestration.SessionStarting.String():
		return "136"
	default:
		return "240"
	}
}

func (m *model) statusLine() string {
	text := fmt.Sprintf("wake phrase %q", m.settings.WakePhrase)
	if m.status.message != "" {
		style := dimStyle
		if m.status.kind == events.StatusFatal || m.status.kind == events.StatusStartFailed || m.status.kind == events.StatusUnsupported {
			style = warnStyle
		}
		return style.Render(m.status.message) + dimStyle.Render(" · "+text)
	}
	return dimStyle.Render(text)
}

func renderAgenda(agenda []calendar.Event) string {
	if len(agenda) == 0 {
		return "Today: nothing planned"
	}
	items := make([]string, 0, len(agenda))
	for _, event := range agenda {
		items = append(items, event.Time+" "+event.Title)
	}
	return "Today: " + strings.Join(items, " · ")
}
