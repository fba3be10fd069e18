package groq

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/koscakluka/ema-calendar/core/calendar"
	"github.com/koscakluka/ema-calendar/core/commands"
)

type capturedBody struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	ResponseFormat json.RawMessage `json:"response_format"`
}

type capturedRequest struct {
	auth string
	body capturedBody
	raw  string
}

func newCompletionServer(t *testing.T, status int, content string, captured chan<- capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body capturedBody
		_ = json.Unmarshal(raw, &body)
		if captured != nil {
			captured <- capturedRequest{auth: r.Header.Get("Authorization"), body: body, raw: string(raw)}
		}

		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
			return
		}
		response := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(response)
	}))
}

func TestClassifySendsSchemaAndParsesAnswer(t *testing.T) {
	captured := make(chan capturedRequest, 1)
	server := newCompletionServer(t, http.StatusOK,
		`{"action":"create_event","params":{"title":"Gym","date":"2026-10-18","time":"18:00"},"responseText":"Booked the gym."}`,
		captured)
	defer server.Close()

	classifier, err := NewClassifier(WithAPIKey("secret"), WithURL(server.URL), WithModel("test-model"))
	if err != nil {
		t.Fatalf("expected classifier, got %v", err)
	}

	classification, err := classifier.Classify(context.Background(), "gym tomorrow at six",
		[]calendar.Event{{ID: "1", Date: "2026-10-17", Time: "09:00", Title: "Standup"}})
	if err != nil {
		t.Fatalf("expected classification, got %v", err)
	}
	if classification.Action != commands.ActionCreateEvent || classification.Params.Title != "Gym" {
		t.Fatalf("unexpected classification %+v", classification)
	}

	request := <-captured
	if request.auth != "Bearer secret" {
		t.Fatalf("expected bearer auth, got %q", request.auth)
	}
	if request.body.Model != "test-model" || len(request.body.Messages) != 2 {
		t.Fatalf("unexpected request body %+v", request.body)
	}
	if request.body.Messages[0].Role != messageRoleSystem || !strings.Contains(request.body.Messages[1].Content, "Standup") {
		t.Fatalf("expected system instruction and events in prompt, got %+v", request.body.Messages)
	}
	if !strings.Contains(request.raw, `"json_schema"`) || !strings.Contains(request.raw, "summarize_events") {
		t.Fatalf("expected action enum in json schema, got %s", request.raw)
	}
}

func TestClassifyReturnsErrorOnBadStatus(t *testing.T) {
	server := newCompletionServer(t, http.StatusTooManyRequests, "", nil)
	defer server.Close()

	classifier, _ := NewClassifier(WithAPIKey("secret"), WithURL(server.URL))
	if _, err := classifier.Classify(context.Background(), "hello", nil); err == nil {
		t.Fatalf("expected error for non-OK status")
	}
}

func TestSummarizeReturnsPlainText(t *testing.T) {
	captured := make(chan capturedRequest, 1)
	server := newCompletionServer(t, http.StatusOK, "A quiet day.", captured)
	defer server.Close()

	classifier, _ := NewClassifier(WithAPIKey("secret"), WithURL(server.URL))
	summary, err := classifier.Summarize(context.Background(), nil, "Saturday")
	if err != nil || summary != "A quiet day." {
		t.Fatalf("unexpected summary %q (%v)", summary, err)
	}

	if request := <-captured; len(request.body.ResponseFormat) != 0 {
		t.Fatalf("expected no response format for summaries")
	}
}

func TestNewClassifierRequiresAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	if _, err := NewClassifier(); err == nil {
		t.Fatalf("expected missing api key to be rejected")
	}
}
