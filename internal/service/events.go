package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nattapong2005/codementorai/internal/observability"
)

// Event subjects, relative to the publisher prefix.
const (
	EventSubmissionGraded  = "submission.graded"
	EventAnalysisCompleted = "analysis.completed"
)

// MessagePublisher is the subset of *nats.Conn used to emit events.
type MessagePublisher interface {
	Publish(subject string, data []byte) error
}

// Event is the envelope sent for every domain event.
type Event struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// SubmissionGradedData is the payload of a submission.graded event.
type SubmissionGradedData struct {
	SubmissionID uint    `json:"submission_id"`
	AssignmentID uint    `json:"assignment_id"`
	StudentID    uint    `json:"student_id"`
	Mode         string  `json:"mode"`
	Score        float64 `json:"score"`
	Fallback     bool    `json:"fallback"`
}

// AnalysisCompletedData is the payload of an analysis.completed event.
type AnalysisCompletedData struct {
	AssignmentID uint `json:"assignment_id"`
	Submissions  int  `json:"submissions"`
}

// EventPublisher emits best-effort domain events. A nil publisher or broker drops events.
type EventPublisher struct {
	broker MessagePublisher
	prefix string
	nodeID string
	logger zerolog.Logger
	now    func() time.Time
}

// NewEventPublisher builds a publisher whose subjects are prefixed with channelBase
// (":" separators become ".").
func NewEventPublisher(broker MessagePublisher, channelBase string, logger zerolog.Logger) *EventPublisher {
	prefix := strings.Trim(strings.ReplaceAll(channelBase, ":", "."), ".")
	return &EventPublisher{
		broker: broker,
		prefix: prefix,
		nodeID: uuid.NewString(),
		logger: logger.With().Str("component", "event_publisher").Logger(),
		now:    time.Now,
	}
}

// Subject returns the fully qualified subject for an event type.
func (p *EventPublisher) Subject(eventType string) string {
	if p == nil || p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish marshals data into an Event and sends it. Failures are logged, never returned.
func (p *EventPublisher) Publish(ctx context.Context, eventType string, data interface{}) {
	if p == nil || p.broker == nil {
		return
	}

	subject := p.Subject(eventType)
	logger := p.logger.With().Str("subject", subject).Logger()

	body, err := json.Marshal(data)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to encode event data")
		observability.EventsPublished().WithLabelValues(subject, "error").Inc()
		return
	}

	payload, err := json.Marshal(Event{
		ID:         uuid.NewString(),
		Source:     p.nodeID,
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Data:       body,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("failed to encode event")
		observability.EventsPublished().WithLabelValues(subject, "error").Inc()
		return
	}

	if err := p.broker.Publish(subject, payload); err != nil {
		logger.Warn().Err(err).Msg("failed to publish event")
		observability.EventsPublished().WithLabelValues(subject, "error").Inc()
		return
	}

	observability.EventsPublished().WithLabelValues(subject, "ok").Inc()
}
