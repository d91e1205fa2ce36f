package grading

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nattapong2005/codementorai/pkg/ai"
)

// FallbackMessageID is the translation key for the "AI unavailable" feedback.
const FallbackMessageID = "grading.ai_unavailable"

const defaultFallbackMessage = "The AI grading system is temporarily unavailable. Please try again later."

// ErrGeneratorUnavailable indicates no AI generator is configured.
var ErrGeneratorUnavailable = errors.New("ai generator unavailable")

// Translator resolves localized messages for the request context.
type Translator interface {
	T(ctx context.Context, messageID string) string
}

// Request describes one submission to grade.
type Request struct {
	Code        string
	Title       string
	Description string
	Mode        FeedbackMode
	MaxScore    float64
}

// Grader turns a piece of code plus assignment context into typed feedback.
type Grader struct {
	generator  ai.Generator
	translator Translator
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewGrader constructs a grader. A nil generator makes every grade fall back.
func NewGrader(generator ai.Generator, translator Translator, logger zerolog.Logger) *Grader {
	return &Grader{
		generator:  generator,
		translator: translator,
		logger:     logger.With().Str("component", "grader").Logger(),
		tracer:     otel.Tracer("github.com/nattapong2005/codementorai/internal/grading"),
	}
}

// Evaluate performs one generation call and returns the clamped feedback or the error.
func (g *Grader) Evaluate(ctx context.Context, req Request) (Feedback, error) {
	if g.generator == nil {
		return nil, ErrGeneratorUnavailable
	}

	selection := Select(req.Mode)
	raw, err := g.generator.Generate(ctx, ai.GenerateRequest{
		SystemPrompt: buildSystemPrompt(req, selection),
		UserPrompt:   buildUserPrompt(req),
		Schema:       selection.Schema,
	})
	if err != nil {
		return nil, err
	}

	feedback, err := DecodeFeedback(selection.Mode, raw)
	if err != nil {
		return nil, err
	}

	base := feedback.Common()
	base.Score = ClampScore(base.Score, req.MaxScore)
	if selection.Mode == ModeNone {
		base.Feedback = ""
	}

	return feedback, nil
}

// Grade never fails: any evaluation error is replaced with the fallback payload
// and reported through the second return value.
func (g *Grader) Grade(ctx context.Context, req Request) (Feedback, bool) {
	ctx, span := g.tracer.Start(ctx, "grading.grade", trace.WithAttributes(
		attribute.String("grading.mode", string(req.Mode)),
		attribute.Float64("grading.max_score", req.MaxScore),
	))
	defer span.End()

	feedback, err := g.Evaluate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fallback")
		g.logger.Warn().Err(err).Str("mode", string(req.Mode)).Msg("grading failed, using fallback feedback")
		return Fallback(g.fallbackMessage(ctx)), true
	}

	span.SetAttributes(attribute.Float64("grading.score", feedback.Common().Score))
	return feedback, false
}

func (g *Grader) fallbackMessage(ctx context.Context) string {
	if g.translator == nil {
		return defaultFallbackMessage
	}
	message := g.translator.T(ctx, FallbackMessageID)
	if message == "" || message == FallbackMessageID {
		return defaultFallbackMessage
	}
	return message
}

