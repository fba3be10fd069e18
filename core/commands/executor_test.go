package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/koscakluka/ema-calendar/core/calendar"
	"github.com/spf13/afero"
)

type classifierStub struct {
	classification *Classification
	err            error
	panics         bool

	summary    string
	summaryErr error

	gotCommand string
	gotEvents  []calendar.Event
}

func (c *classifierStub) Classify(_ context.Context, command string, events []calendar.Event) (*Classification, error) {
	if c.panics {
		panic("boom")
	}
	c.gotCommand = command
	c.gotEvents = events
	return c.classification, c.err
}

func (c *classifierStub) Summarize(_ context.Context, events []calendar.Event, _ string) (string, error) {
	c.gotEvents = events
	return c.summary, c.summaryErr
}

type launcherStub struct {
	opened []string
	err    error
}

func (l *launcherStub) Open(program string) error {
	l.opened = append(l.opened, program)
	return l.err
}

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.Local)

func newTestExecutor(t *testing.T, classifier Classifier, launcher Launcher) (*Executor, *calendar.FileStore) {
	t.Helper()
	store, err := calendar.NewFileStore(afero.NewMemMapFs(), "/events.json")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return NewExecutor(classifier, store,
		WithLauncher(launcher),
		WithNow(func() time.Time { return fixedNow }),
	), store
}

func TestExecuteCreatesEvent(t *testing.T) {
	classifier := &classifierStub{classification: &Classification{
		Action:       ActionCreateEvent,
		Params:       Params{Title: "Dentist", Date: "2026-10-18", Time: "10:00"},
		ResponseText: "Added the dentist for tomorrow at 10.",
	}}
	executor, store := newTestExecutor(t, classifier, &launcherStub{})

	response := executor.Execute(context.Background(), "add dentist tomorrow at 10")
	if response.Action != ActionCreateEvent || response.Spoken != "Added the dentist for tomorrow at 10." {
		t.Fatalf("unexpected response %+v", response)
	}

	events, _ := store.ForDate("2026-10-18")
	if len(events) != 1 || events[0].Title != "Dentist" {
		t.Fatalf("expected event to be stored, got %+v", events)
	}
	if classifier.gotCommand != "add dentist tomorrow at 10" {
		t.Fatalf("expected command to reach classifier, got %q", classifier.gotCommand)
	}
}

func TestExecuteCreateReportsStoreFailure(t *testing.T) {
	classifier := &classifierStub{classification: &Classification{
		Action:       ActionCreateEvent,
		Params:       Params{Title: "Dentist", Date: "next tuesday", Time: "10:00"},
		ResponseText: "Added the dentist for next Tuesday.",
	}}
	executor, store := newTestExecutor(t, classifier, &launcherStub{})

	response := executor.Execute(context.Background(), "add dentist next tuesday at 10")
	if strings.Contains(response.Text, "Added") || response.Spoken != response.Text {
		t.Fatalf("expected failure message instead of classifier text, got %+v", response)
	}
	if !strings.Contains(response.Text, "Dentist") {
		t.Fatalf("expected failure message to name the event, got %q", response.Text)
	}
	if events, _ := store.Events(); len(events) != 0 {
		t.Fatalf("expected nothing stored, got %+v", events)
	}
}

func TestExecuteCreateWithMissingFieldsStoresNothing(t *testing.T) {
	classifier := &classifierStub{classification: &Classification{
		Action: ActionCreateEvent,
		Params: Params{Title: "Dentist"},
	}}
	executor, store := newTestExecutor(t, classifier, &launcherStub{})

	executor.Execute(context.Background(), "add dentist")

	if events, _ := store.Events(); len(events) != 0 {
		t.Fatalf("expected no event without date and time, got %+v", events)
	}
}

func TestExecuteReadsEventsForDate(t *testing.T) {
	classifier := &classifierStub{classification: &Classification{Action: ActionReadEvents}}
	executor, store := newTestExecutor(t, classifier, &launcherStub{})
	_, _ = store.Add(calendar.Event{Date: "2026-10-17", Time: "14:00", Title: "Review <draft>"})
	_, _ = store.Add(calendar.Event{Date: "2026-10-17", Time: "09:00", Title: "Standup"})

	response := executor.Execute(context.Background(), "what do I have today")

	if !strings.Contains(response.Spoken, "at 09:00, Standup; at 14:00, Review <draft>") {
		t.Fatalf("unexpected spoken response %q", response.Spoken)
	}
	if !strings.Contains(response.HTML, "<li><b>14:00</b>: Review &lt;draft&gt;</li>") {
		t.Fatalf("expected escaped html list, got %q", response.HTML)
	}
	if !strings.Contains(response.Text, "Saturday, 17 October 2026") {
		t.Fatalf("expected today's date in response, got %q", response.Text)
	}
}

func TestExecuteReadsEmptyDay(t *testing.T) {
	classifier := &classifierStub{classification: &Classification{
		Action: ActionReadEvents,
		Params: Params{Date: "2026-12-25"},
	}}
	executor, _ := newTestExecutor(t, classifier, &launcherStub{})

	response := executor.Execute(context.Background(), "what about christmas")
	if response.Spoken != "You have no events on Friday, 25 December 2026." {
		t.Fatalf("unexpected spoken response %q", response.Spoken)
	}
	if response.HTML != "" {
		t.Fatalf("expected no html for an empty day, got %q", response.HTML)
	}
}

func TestExecuteDeletesEvent(t *testing.T) {
	classifier := &classifierStub{classification: &Classification{
		Action: ActionDeleteEvent,
		Params: Params{Title: "dentist"},
	}}
	executor, store := newTestExecutor(t, classifier, &launcherStub{})
	_, _ = store.Add(calendar.Event{Date: "2026-10-18", Time: "10:00", Title: "Dentist appointment"})

	response := executor.Execute(context.Background(), "cancel the dentist")
	if response.Spoken != `I deleted the event "Dentist appointment".` {
		t.Fatalf("unexpected response %q", response.Spoken)
	}

	response = executor.Execute(context.Background(), "cancel the dentist")
	if response.Spoken != `I couldn't find an event titled "dentist" to delete.` {
		t.Fatalf("unexpected response %q", response.Spoken)
	}
}

func TestExecuteOpensProgram(t *testing.T) {
	classifier := &classifierStub{classification: &Classification{
		Action:       ActionOpenProgram,
		Params:       Params{Program: "obsidian"},
		ResponseText: "Opening Obsidian.",
	}}
	launcher := &launcherStub{}
	executor, _ := newTestExecutor(t, classifier, launcher)

	response := executor.Execute(context.Background(), "open obsidian")
	if len(launcher.opened) != 1 || launcher.opened[0] != "obsidian" {
		t.Fatalf("expected obsidian to be opened, got %v", launcher.opened)
	}
	if response.Spoken != "Opening Obsidian." {
		t.Fatalf("unexpected response %q", response.Spoken)
	}

	launcher.err = errors.New("no handler")
	response = executor.Execute(context.Background(), "open obsidian")
	if response.Spoken != `I couldn't open "obsidian".` {
		t.Fatalf("expected launch failure message, got %q", response.Spoken)
	}
}

func TestExecuteApologizesOnClassifierFailure(t *testing.T) {
	testCases := []struct {
		name       string
		classifier *classifierStub
	}{
		{name: "error", classifier: &classifierStub{err: errors.New("quota exceeded")}},
		{name: "nil result", classifier: &classifierStub{}},
		{name: "panic", classifier: &classifierStub{panics: true}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			executor, _ := newTestExecutor(t, testCase.classifier, &launcherStub{})

			response := executor.Execute(context.Background(), "hello")
			if response.Action != ActionGeneralConversation || response.Spoken != ApologyText {
				t.Fatalf("expected apology, got %+v", response)
			}
		})
	}
}

func TestDailySummary(t *testing.T) {
	classifier := &classifierStub{summary: "  Just a standup today.  "}
	executor, store := newTestExecutor(t, classifier, &launcherStub{})
	_, _ = store.Add(calendar.Event{Date: "2026-10-17", Time: "09:00", Title: "Standup"})
	_, _ = store.Add(calendar.Event{Date: "2026-10-18", Time: "09:00", Title: "Other day"})

	if summary := executor.DailySummary(context.Background(), fixedNow); summary != "Just a standup today." {
		t.Fatalf("unexpected summary %q", summary)
	}
	if len(classifier.gotEvents) != 1 || classifier.gotEvents[0].Title != "Standup" {
		t.Fatalf("expected only today's events to be summarized, got %+v", classifier.gotEvents)
	}

	classifier.summaryErr = errors.New("offline")
	if summary := executor.DailySummary(context.Background(), fixedNow); summary != SummaryFallbackText {
		t.Fatalf("expected fallback summary, got %q", summary)
	}
}
