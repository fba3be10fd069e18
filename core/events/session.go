package events

const (
	KindSessionStateChanged Kind = "session.state_changed"
	KindSessionStatus       Kind = "session.status"
)

type StatusKind string

const (
	StatusInitializing StatusKind = "initializing"
	StatusListening    StatusKind = "listening"
	StatusAwake        StatusKind = "awake"
	StatusRestarting   StatusKind = "restarting"
	StatusStopped      StatusKind = "stopped"
	// StatusDegraded is a recoverable device problem, listening goes on.
	StatusDegraded StatusKind = "degraded"
	// StatusFatal means listening stays off until the user starts it again.
	StatusFatal       StatusKind = "fatal"
	StatusStartFailed StatusKind = "start_failed"
	StatusUnsupported StatusKind = "unsupported"
)

// SessionStateChanged carries the new recognition session state.
type SessionStateChanged struct {
	Base
	State string
}

func NewSessionStateChanged(state string) SessionStateChanged {
	return SessionStateChanged{Base: NewBase(KindSessionStateChanged), State: state}
}

// SessionStatus carries a status line update for the user.
type SessionStatus struct {
	Base
	Status  StatusKind
	Message string
}

func NewSessionStatus(status StatusKind, message string) SessionStatus {
	return SessionStatus{Base: NewBase(KindSessionStatus), Status: status, Message: message}
}
