// Package commands turns free-text user commands into calendar actions.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-calendar/core/calendar"
)

type Action string

const (
	ActionCreateEvent         Action = "create_event"
	ActionReadEvents          Action = "read_events"
	ActionSummarizeEvents     Action = "summarize_events"
	ActionDeleteEvent         Action = "delete_event"
	ActionOpenProgram         Action = "open_program"
	ActionGeneralConversation Action = "general_conversation"
	ActionUnsure              Action = "unsure"
)

// Actions lists every action a classifier may answer with.
var Actions = []Action{
	ActionCreateEvent,
	ActionReadEvents,
	ActionSummarizeEvents,
	ActionDeleteEvent,
	ActionOpenProgram,
	ActionGeneralConversation,
	ActionUnsure,
}

const (
	// ApologyText replaces the response whenever classification fails.
	ApologyText = "Sorry, something went wrong while processing your request. Please try again."
	// SummaryFallbackText is used when the daily summary cannot be generated.
	SummaryFallbackText = "I couldn't put together today's summary because of an error."
)

type Params struct {
	Title       string `json:"title,omitempty" jsonschema:"description=Title of the event"`
	Date        string `json:"date,omitempty" jsonschema:"description=Event date as YYYY-MM-DD"`
	Time        string `json:"time,omitempty" jsonschema:"description=Event time as HH:MM"`
	Description string `json:"description,omitempty" jsonschema:"description=Optional event description"`
	Period      string `json:"period,omitempty" jsonschema:"description=Period to summarize such as today or this week"`
	Program     string `json:"program,omitempty" jsonschema:"description=Name of the program to open"`
	Text        string `json:"text,omitempty" jsonschema:"description=Text of a general conversation"`
}

// Classification is what a classifier understood from a command.
type Classification struct {
	Action       Action `json:"action" jsonschema:"enum=create_event,enum=read_events,enum=summarize_events,enum=delete_event,enum=open_program,enum=general_conversation,enum=unsure"`
	Params       Params `json:"params"`
	ResponseText string `json:"responseText" jsonschema:"description=A friendly reply to show the user"`
}

type Classifier interface {
	Classify(ctx context.Context, command string, events []calendar.Event) (*Classification, error)
	Summarize(ctx context.Context, events []calendar.Event, date string) (string, error)
}

// ParseClassification decodes a classifier's JSON answer, tolerating a
// surrounding markdown code fence.
func ParseClassification(content string) (*Classification, error) {
	content = strings.TrimSpace(content)
	if split := strings.Split(content, "```"); len(split) > 2 {
		content = strings.TrimPrefix(strings.TrimSpace(split[1]), "json")
	}

	var classification Classification
	if err := json.Unmarshal([]byte(content), &classification); err != nil {
		return nil, fmt.Errorf("failed to parse classification: %w", err)
	}

	if !isKnownAction(classification.Action) {
		classification.Action = ActionUnsure
	}
	return &classification, nil
}

func isKnownAction(action Action) bool {
	for _, known := range Actions {
		if action == known {
			return true
		}
	}
	return false
}
