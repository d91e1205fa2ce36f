package ai

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/sashabaranov/go-openai/jsonschema"
)

// ErrNoChoices is returned when the provider answers without any completion choice.
var ErrNoChoices = errors.New("ai: provider returned no choices")

// ErrEmptyContent is returned when the provider answers with an empty message body.
var ErrEmptyContent = errors.New("ai: provider returned empty content")

// Schema names a JSON schema that a generated object must satisfy.
type Schema struct {
	Name        string
	Description string
	Definition  jsonschema.Definition
}

// GenerateRequest carries a single structured-generation call.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	Schema       Schema
}

// Generator produces one JSON object conforming to the request schema.
// Implementations perform exactly one request; retries belong to callers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (json.RawMessage, error)
}
