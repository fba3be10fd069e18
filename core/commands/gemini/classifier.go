package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/koscakluka/ema-calendar/core/calendar"
	"github.com/koscakluka/ema-calendar/core/commands"
	"github.com/koscakluka/ema-calendar/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Classifier classifies calendar commands with Gemini structured output.
type Classifier struct {
	client *genai.Client
	model  string
	now    func() time.Time
}

type classifierOptions struct {
	apiKey  string
	model   string
	baseURL string
}

type ClassifierOption func(*classifierOptions)

func WithAPIKey(apiKey string) ClassifierOption {
	return func(o *classifierOptions) { o.apiKey = apiKey }
}

func WithModel(model string) ClassifierOption {
	return func(o *classifierOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL points the client at a different Gemini API endpoint.
func WithBaseURL(baseURL string) ClassifierOption {
	return func(o *classifierOptions) { o.baseURL = baseURL }
}

func NewClassifier(ctx context.Context, opts ...ClassifierOption) (*Classifier, error) {
	options := classifierOptions{
		apiKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.apiKey == "" {
		return nil, fmt.Errorf("gemini api key not found")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      options.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: options.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Classifier{client: client, model: options.model, now: time.Now}, nil
}

func (c *Classifier) Classify(ctx context.Context, command string, events []calendar.Event) (*commands.Classification, error) {
	ctx, span := tracer.Start(ctx, "classify command")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model))

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(commands.ClassificationPrompt(command, events)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(commands.SystemInstruction(c.now()), genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    classificationSchema(),
			Temperature:       utils.Ptr[float32](0),
		})
	if err != nil {
		err = fmt.Errorf("failed to generate classification: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	classification, err := commands.ParseClassification(resp.Text())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn("gemini returned an unreadable classification", "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("response.action", string(classification.Action)))
	return classification, nil
}

func (c *Classifier) Summarize(ctx context.Context, events []calendar.Event, date string) (string, error) {
	ctx, span := tracer.Start(ctx, "summarize day")
	defer span.End()

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		genai.Text(commands.SummaryPrompt(events, date)),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(commands.SummaryInstruction, genai.RoleUser),
		})
	if err != nil {
		err = fmt.Errorf("failed to generate summary: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return resp.Text(), nil
}

func classificationSchema() *genai.Schema {
	actions := make([]string, 0, len(commands.Actions))
	for _, action := range commands.Actions {
		actions = append(actions, string(action))
	}

	stringProperty := func(description string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: description}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"action": {Type: genai.TypeString, Enum: actions},
			"params": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"title":       stringProperty("Title of the event."),
					"date":        stringProperty("Event date as YYYY-MM-DD."),
					"time":        stringProperty("Event time as HH:MM."),
					"description": stringProperty("Optional event description."),
					"period":      stringProperty("Period to summarize, for example today, tomorrow or week."),
					"program":     stringProperty("Name of the program to open."),
					"text":        stringProperty("Text of a general conversation."),
				},
			},
			"responseText": stringProperty("A friendly reply to show the user."),
		},
		Required: []string{"action", "responseText"},
	}
}
