package events

import "github.com/google/uuid"

const KindMessage Kind = "chat.message"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// Message is one line of conversation history. HTML is an optional rich
// rendering of Text.
type Message struct {
	Base
	ID     string
	Sender Sender
	Text   string
	HTML   string
}

func NewMessage(sender Sender, text, html string) Message {
	return Message{
		Base:   NewBase(KindMessage),
		ID:     uuid.NewString(),
		Sender: sender,
		Text:   text,
		HTML:   html,
	}
}
