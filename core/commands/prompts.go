package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/koscakluka/ema-calendar/core/calendar"
)

// SystemInstruction is shared by all classifiers so they agree on the
// meaning of every action.
func SystemInstruction(now time.Time) string {
	return fmt.Sprintf(`You are the assistant of a smart calendar. Your job is to help the user manage their events.
Interpret the user's request and answer in JSON using the provided schema.
The current date and time is %s.

The possible actions are:
- 'create_event': the user wants to add a new event. Extract title, date (YYYY-MM-DD), time (HH:MM) and a description if given.
- 'read_events': the user asks what is planned on a specific date. Extract the date, assume today if none is given.
- 'summarize_events': the user asks for a summary of a period (for example 'today', 'tomorrow', 'this week'). Extract the period.
- 'delete_event': the user wants to remove an event. Extract the title or something that identifies it.
- 'open_program': the user wants to open a program (for example 'open obsidian'). Extract the program name.
- 'general_conversation': any other question or conversation.
- 'unsure': the request is unclear.

Examples:
- "Add a project meeting tomorrow at 10" -> {"action": "create_event", "params": {"title": "Project meeting", "date": "[tomorrow]", "time": "10:00"}}
- "What do I have today?" -> {"action": "read_events", "params": {"date": "[today]"}}
- "Summarize my week" -> {"action": "summarize_events", "params": {"period": "week"}}
- "Open vscode" -> {"action": "open_program", "params": {"program": "vscode"}}
- "How are you?" -> {"action": "general_conversation", "params": {"text": "How are you?"}}`,
		now.Format("Monday, 2 January 2006 15:04"))
}

func ClassificationPrompt(command string, events []calendar.Event) string {
	return fmt.Sprintf("User request: %q\n\nExisting calendar events (context, if needed to answer): %s",
		command, eventsJSON(events))
}

const SummaryInstruction = "You are a personal assistant who gives a daily summary of the user's appointments."

func SummaryPrompt(events []calendar.Event, date string) string {
	return fmt.Sprintf("Give a concise and friendly summary of today's events, %s. If there are no events, say so in a positive way. Today's events: %s",
		date, eventsJSON(events))
}

func eventsJSON(events []calendar.Event) string {
	if events == nil {
		events = []calendar.Event{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return "[]"
	}
	return string(data)
}
