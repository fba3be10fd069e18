package gemini

import (
	"context"
	"slices"
	"testing"

	"github.com/koscakluka/ema-calendar/core/commands"
	"google.golang.org/genai"
)

func TestClassificationSchemaListsEveryAction(t *testing.T) {
	schema := classificationSchema()

	if schema.Type != genai.TypeObject {
		t.Fatalf("expected object schema, got %q", schema.Type)
	}
	action, ok := schema.Properties["action"]
	if !ok {
		t.Fatalf("expected action property")
	}
	for _, expected := range commands.Actions {
		if !slices.Contains(action.Enum, string(expected)) {
			t.Fatalf("expected action enum to contain %q, got %v", expected, action.Enum)
		}
	}

	params := schema.Properties["params"]
	for _, field := range []string{"title", "date", "time", "description", "period", "program", "text"} {
		if _, ok := params.Properties[field]; !ok {
			t.Fatalf("expected params to contain %q", field)
		}
	}
}

func TestNewClassifierRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	if _, err := NewClassifier(context.Background()); err == nil {
		t.Fatalf("expected missing api key to be rejected")
	}
}
