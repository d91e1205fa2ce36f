package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "codementor",
		Subsystem: "ai",
		Name:      "generation_duration_seconds",
		Help:      "Duration of structured generation requests",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"model", "schema"})

	generationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "codementor",
		Subsystem: "ai",
		Name:      "generation_failures_total",
		Help:      "Number of failed structured generation requests",
	}, []string{"model", "schema", "reason"})
)

// OpenAIConfig defines configuration options for the OpenAI generator.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAIGenerator implements Generator against the OpenAI chat completion API
// using strict JSON-schema response formats.
type OpenAIGenerator struct {
	client    *openai.Client
	cfg       OpenAIConfig
	validator *SchemaValidator
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewOpenAIGenerator builds a new generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIGenerator{
		client:    openai.NewClientWithConfig(config),
		cfg:       cfg,
		validator: NewSchemaValidator(),
		tracer:    otel.Tracer("github.com/nattapong2005/codementorai/pkg/ai/openai"),
		logger:    logger.With().Str("component", "openai_generator").Logger(),
	}, nil
}

// Generate sends one structured generation request and returns the validated JSON object.
func (g *OpenAIGenerator) Generate(parent context.Context, req GenerateRequest) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(parent, g.cfg.Timeout)
	defer cancel()

	ctx, span := g.tracer.Start(ctx, "openai.generate", trace.WithAttributes(
		attribute.String("ai.model", g.cfg.Model),
		attribute.String("ai.schema", req.Schema.Name),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Schema:      &req.Schema.Definition,
				Strict:      true,
			},
		},
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, request)
	generationDuration.WithLabelValues(g.cfg.Model, req.Schema.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, g.fail(span, req.Schema.Name, "provider", fmt.Errorf("openai generate: %w", err))
	}

	if len(resp.Choices) == 0 {
		return nil, g.fail(span, req.Schema.Name, "no_choices", ErrNoChoices)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, g.fail(span, req.Schema.Name, "empty", ErrEmptyContent)
	}

	if err := g.validator.Validate(req.Schema, []byte(content)); err != nil {
		return nil, g.fail(span, req.Schema.Name, "schema", err)
	}

	span.SetAttributes(
		attribute.Int("ai.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("ai.completion_tokens", resp.Usage.CompletionTokens),
	)
	g.logger.Debug().
		Str("schema", req.Schema.Name).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("structured generation completed")

	return json.RawMessage(content), nil
}

func (g *OpenAIGenerator) fail(span trace.Span, schema, reason string, err error) error {
	generationFailures.WithLabelValues(g.cfg.Model, schema, reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	g.logger.Warn().Err(err).Str("schema", schema).Str("reason", reason).Msg("structured generation failed")
	return err
}
