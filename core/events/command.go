package events

const (
	KindCommandStarted   Kind = "command.started"
	KindCommandCompleted Kind = "command.completed"
)

type CommandOrigin string

const (
	OriginVoice CommandOrigin = "voice"
	OriginText  CommandOrigin = "text"
)

type CommandStarted struct {
	Base
	Origin  CommandOrigin
	Command string
}

func NewCommandStarted(origin CommandOrigin, command string) CommandStarted {
	return CommandStarted{Base: NewBase(KindCommandStarted), Origin: origin, Command: command}
}

type CommandCompleted struct {
	Base
	Origin   CommandOrigin
	Response string
}

func NewCommandCompleted(origin CommandOrigin, response string) CommandCompleted {
	return CommandCompleted{Base: NewBase(KindCommandCompleted), Origin: origin, Response: response}
}
