package commands

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/koscakluka/ema-calendar/core/calendar"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Store interface {
	Add(event calendar.Event) (calendar.Event, error)
	DeleteByTitle(title string) (calendar.Event, bool, error)
	ForDate(date string) ([]calendar.Event, error)
	Events() ([]calendar.Event, error)
}

// Response is the result of one command. Text is shown to the user, HTML is
// an optional richer rendering of it and Spoken is what gets read aloud.
type Response struct {
	Action Action
	Text   string
	HTML   string
	Spoken string
}

// ApologyResponse is the response to a command that could not be handled.
func ApologyResponse() Response {
	return Response{Action: ActionGeneralConversation, Text: ApologyText, Spoken: ApologyText}
}

type Executor struct {
	classifier Classifier
	store      Store
	launcher   Launcher
	now        func() time.Time
}

type ExecutorOption func(*Executor)

func WithLauncher(launcher Launcher) ExecutorOption {
	return func(e *Executor) { e.launcher = launcher }
}

func WithNow(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

func NewExecutor(classifier Classifier, store Store, opts ...ExecutorOption) *Executor {
	executor := &Executor{
		classifier: classifier,
		store:      store,
		launcher:   NewURLSchemeLauncher(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor
}

// Execute classifies command and applies it to the calendar. It never
// fails: classifier errors turn into a conversational apology.
func (e *Executor) Execute(ctx context.Context, command string) (response Response) {
	ctx, span := tracer.Start(ctx, "execute command")
	defer span.End()

	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("command execution panicked: %v", recovered)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			response = ApologyResponse()
		}
		span.SetAttributes(attribute.String("command.action", string(response.Action)))
	}()

	events, err := e.store.Events()
	if err != nil {
		logger.Warn("failed to load events for classification", "error", err)
	}

	classification, err := e.classifier.Classify(ctx, command, events)
	if err != nil || classification == nil {
		if err == nil {
			err = fmt.Errorf("classifier returned no result")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("failed to classify command", "error", err)
		return ApologyResponse()
	}

	return e.apply(*classification)
}

func (e *Executor) apply(classification Classification) Response {
	response := Response{
		Action: classification.Action,
		Text:   classification.ResponseText,
		Spoken: classification.ResponseText,
	}
	params := classification.Params

	switch classification.Action {
	case ActionCreateEvent:
		if params.Title != "" && params.Date != "" && params.Time != "" {
			if _, err := e.store.Add(calendar.Event{
				Date:        params.Date,
				Time:        params.Time,
				Title:       params.Title,
				Description: params.Description,
			}); err != nil {
				logger.Warn("failed to add event", "error", err)
				response.Text = fmt.Sprintf("I couldn't add %q to your calendar because of an error.", params.Title)
				response.Spoken = response.Text
			}
		}

	case ActionReadEvents:
		return e.readEvents(params.Date)

	case ActionDeleteEvent:
		deleted, ok, err := e.store.DeleteByTitle(params.Title)
		switch {
		case err != nil:
			logger.Warn("failed to delete event", "error", err)
			response.Text = fmt.Sprintf("I couldn't delete %q because of an error.", params.Title)
		case ok:
			response.Text = fmt.Sprintf("I deleted the event %q.", deleted.Title)
		default:
			response.Text = fmt.Sprintf("I couldn't find an event titled %q to delete.", params.Title)
		}
		response.Spoken = response.Text

	case ActionOpenProgram:
		if err := e.launcher.Open(params.Program); err != nil {
			logger.Warn("failed to open program", "program", params.Program, "error", err)
			response.Text = fmt.Sprintf("I couldn't open %q.", params.Program)
			response.Spoken = response.Text
		}
	}

	return response
}

func (e *Executor) readEvents(date string) Response {
	if _, err := time.Parse(calendar.DateLayout, date); err != nil {
		date = calendar.FormatDate(e.now())
	}
	day, _ := time.ParseInLocation(calendar.DateLayout, date, time.Local)
	formattedDate := day.Format("Monday, 2 January 2006")

	events, err := e.store.ForDate(date)
	if err != nil {
		logger.Warn("failed to read events", "date", date, "error", err)
	}

	response := Response{Action: ActionReadEvents}
	if len(events) == 0 {
		response.Text = fmt.Sprintf("No events found for %s.", formattedDate)
		response.Spoken = fmt.Sprintf("You have no events on %s.", formattedDate)
		return response
	}

	lines := make([]string, 0, len(events))
	spoken := make([]string, 0, len(events))
	items := make([]string, 0, len(events))
	for _, event := range events {
		lines = append(lines, fmt.Sprintf("%s %s", event.Time, event.Title))
		spoken = append(spoken, fmt.Sprintf("at %s, %s", event.Time, event.Title))
		items = append(items, fmt.Sprintf("<li><b>%s</b>: %s</li>", event.Time, html.EscapeString(event.Title)))
	}

	response.Text = fmt.Sprintf("Here are the events for %s:\n%s", formattedDate, strings.Join(lines, "\n"))
	response.HTML = fmt.Sprintf("Here are the events for %s:<br/><ul>%s</ul>", formattedDate, strings.Join(items, ""))
	response.Spoken = fmt.Sprintf("On %s you have: %s", formattedDate, strings.Join(spoken, "; "))
	return response
}

// DailySummary describes the events of day in a few sentences.
func (e *Executor) DailySummary(ctx context.Context, day time.Time) (summary string) {
	ctx, span := tracer.Start(ctx, "daily summary")
	defer span.End()

	defer func() {
		if recovered := recover(); recovered != nil {
			span.SetStatus(codes.Error, fmt.Sprintf("daily summary panicked: %v", recovered))
			summary = SummaryFallbackText
		}
	}()

	date := calendar.FormatDate(day)
	events, err := e.store.ForDate(date)
	if err != nil {
		logger.Warn("failed to read events for summary", "date", date, "error", err)
	}

	summary, err = e.classifier.Summarize(ctx, events, day.Format("Monday, 2 January 2006"))
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("failed to summarize day", "error", err)
		}
		return SummaryFallbackText
	}
	return strings.TrimSpace(summary)
}
