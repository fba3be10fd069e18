package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ChatResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

type JSONSchema struct {
	// Name identifies the schema in the response.
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Schema      jsonschema.Schema `json:"schema"`
	// Strict enforces the schema upon the generated content.
	Strict bool `json:"strict"`
}

// promptJSONSchema asks for a completion shaped like outputSchema and returns
// the raw JSON content.
func (c *Classifier) promptJSONSchema(ctx context.Context, prompt, systemPrompt string, outputSchema any) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm structured")
	defer span.End()

	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	schema := reflector.Reflect(outputSchema)
	outputTypeName := reflect.TypeOf(outputSchema).Name()

	reqBody := requestBody{
		Model:    c.model,
		Messages: toMessages(systemPrompt, prompt),
		ResponseFormat: &ChatResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchema{
				Name:   outputTypeName,
				Schema: *schema,
				Strict: false,
			},
		},
	}

	span.SetAttributes(attribute.String("request.model", c.model))
	schemaString, _ := schema.MarshalJSON()
	span.SetAttributes(attribute.String("request.schema", string(schemaString)))

	return c.complete(ctx, span, reqBody)
}

// prompt asks for a plain text completion.
func (c *Classifier) prompt(ctx context.Context, prompt, systemPrompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()

	span.SetAttributes(attribute.String("request.model", c.model))
	return c.complete(ctx, span, requestBody{
		Model:    c.model,
		Messages: toMessages(systemPrompt, prompt),
	})
}

func (c *Classifier) complete(ctx context.Context, span trace.Span, reqBody requestBody) (string, error) {
	recordErr := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", recordErr(fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", recordErr(fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	span.SetAttributes(attribute.String("request.url", req.URL.String()))
	resp, err := c.client.Do(req)
	if err != nil {
		return "", recordErr(fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, err := io.ReadAll(resp.Body); err == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		logger.Warn("groq request failed", "status", resp.Status)
		return "", recordErr(fmt.Errorf("non-OK HTTP status: %s", resp.Status))
	}

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", recordErr(fmt.Errorf("error reading response body: %w", err))
	}

	var parsed responseBody
	if err := json.Unmarshal(respBodyBytes, &parsed); err != nil {
		return "", recordErr(fmt.Errorf("error unmarshalling response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", recordErr(fmt.Errorf("response has no choices"))
	}

	return parsed.Choices[0].Message.Content, nil
}
