package groq

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/koscakluka/ema-calendar/core/calendar"
	"github.com/koscakluka/ema-calendar/core/commands"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultURL   = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel = "openai/gpt-oss-20b"
)

// Classifier classifies calendar commands with Groq chat completions
// constrained by a JSON schema.
type Classifier struct {
	apiKey string
	model  string
	url    string
	client *http.Client
	now    func() time.Time
}

type ClassifierOption func(*Classifier)

func WithAPIKey(apiKey string) ClassifierOption {
	return func(c *Classifier) { c.apiKey = apiKey }
}

func WithModel(model string) ClassifierOption {
	return func(c *Classifier) {
		if model != "" {
			c.model = model
		}
	}
}

func WithURL(url string) ClassifierOption {
	return func(c *Classifier) { c.url = url }
}

func NewClassifier(opts ...ClassifierOption) (*Classifier, error) {
	classifier := &Classifier{
		apiKey: strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		model:  defaultModel,
		url:    defaultURL,
		client: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(classifier)
	}

	if classifier.apiKey == "" {
		return nil, fmt.Errorf("groq api key not found")
	}
	return classifier, nil
}

func (c *Classifier) Classify(ctx context.Context, command string, events []calendar.Event) (*commands.Classification, error) {
	content, err := c.promptJSONSchema(ctx,
		commands.ClassificationPrompt(command, events),
		commands.SystemInstruction(c.now()),
		commands.Classification{})
	if err != nil {
		return nil, err
	}
	return commands.ParseClassification(content)
}

func (c *Classifier) Summarize(ctx context.Context, events []calendar.Event, date string) (string, error) {
	return c.prompt(ctx, commands.SummaryPrompt(events, date), commands.SummaryInstruction)
}
