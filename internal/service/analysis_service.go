package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/nattapong2005/codementorai/internal/dto"
	"github.com/nattapong2005/codementorai/internal/grading"
	"github.com/nattapong2005/codementorai/internal/models"
	"github.com/nattapong2005/codementorai/internal/observability"
	"github.com/nattapong2005/codementorai/internal/repository"
	"github.com/nattapong2005/codementorai/pkg/ai"
)

var (
	// ErrNoSubmissionsYet indicates an assignment without any submitted code to analyze.
	ErrNoSubmissionsYet = errors.New("no submissions to analyze yet")
	// ErrAnalysisFailed wraps any failure of the analysis generation step.
	ErrAnalysisFailed = errors.New("class analysis failed")
)

// AnalysisService aggregates a class's submissions into one stored analysis.
type AnalysisService interface {
	AnalyzeClassPerformance(ctx context.Context, actor Actor, assignmentID uint, force bool) (dto.AnalysisResponse, error)
	GetStoredAnalysis(ctx context.Context, actor Actor, assignmentID uint) (*dto.AnalysisResponse, error)
}

// AnalysisServiceDeps groups the collaborators of the analysis service.
type AnalysisServiceDeps struct {
	Analyses    repository.AnalysisRepository
	Assignments repository.AssignmentRepository
	Submissions repository.SubmissionRepository
	Classrooms  repository.ClassroomRepository
	Generator   ai.Generator
	Cache       *AnalysisCache
	Events      *EventPublisher
	Logger      zerolog.Logger
}

type analysisService struct {
	analyses    repository.AnalysisRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	access      accessPolicy
	generator   ai.Generator
	cache       *AnalysisCache
	events      *EventPublisher
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewAnalysisService constructs the class performance aggregator.
func NewAnalysisService(deps AnalysisServiceDeps) AnalysisService {
	return &analysisService{
		analyses:    deps.Analyses,
		assignments: deps.Assignments,
		submissions: deps.Submissions,
		access:      accessPolicy{classrooms: deps.Classrooms},
		generator:   deps.Generator,
		cache:       deps.Cache,
		events:      deps.Events,
		logger:      deps.Logger.With().Str("component", "analysis_service").Logger(),
		tracer:      otel.Tracer("github.com/nattapong2005/codementorai/internal/service/analysis"),
	}
}

// AnalyzeClassPerformance returns the stored analysis unless force is set, otherwise it
// generates a fresh one from every submission with code and replaces the stored row.
func (s *analysisService) AnalyzeClassPerformance(ctx context.Context, actor Actor, assignmentID uint, force bool) (dto.AnalysisResponse, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.analyze_class_performance", trace.WithAttributes(
		attribute.Int64("analysis.assignment_id", int64(assignmentID)),
		attribute.Bool("analysis.force", force),
	))
	defer span.End()

	assignment, err := loadAssignment(ctx, s.assignments, assignmentID)
	if err != nil {
		return dto.AnalysisResponse{}, err
	}
	if err := s.access.requireOwner(actor, assignment.Classroom); err != nil {
		return dto.AnalysisResponse{}, err
	}

	if !force {
		stored, err := s.lookup(ctx, assignmentID)
		if err != nil {
			return dto.AnalysisResponse{}, err
		}
		if stored != nil {
			observability.AnalysisRuns().WithLabelValues("stored").Inc()
			return *stored, nil
		}
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: assignmentID, NonEmptyCodeOnly: true})
	if err != nil {
		return dto.AnalysisResponse{}, err
	}
	if len(submissions) == 0 {
		observability.AnalysisRuns().WithLabelValues("no_submissions").Inc()
		return dto.AnalysisResponse{}, ErrNoSubmissionsYet
	}
	span.SetAttributes(attribute.Int("analysis.submissions", len(submissions)))

	result, err := s.generate(ctx, assignment, submissions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		observability.AnalysisRuns().WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Uint("assignment_id", assignmentID).Msg("class analysis generation failed")
		return dto.AnalysisResponse{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	analysis := models.AssignmentAnalysis{
		AssignmentID:  assignmentID,
		Strengths:     result.OverallStrengths,
		Weaknesses:    result.OverallWeaknesses,
		NeedingHelp:   datatypes.JSONSlice[models.StudentInsight](nonNilInsights(result.StudentsNeedingHelp)),
		TopPerformers: datatypes.JSONSlice[models.StudentInsight](nonNilInsights(result.TopPerformers)),
	}
	if err := s.analyses.Upsert(ctx, &analysis); err != nil {
		span.RecordError(err)
		return dto.AnalysisResponse{}, err
	}

	response := dto.NewAnalysisResponse(analysis)
	s.cache.Set(ctx, response)
	observability.AnalysisRuns().WithLabelValues("generated").Inc()
	s.events.Publish(ctx, EventAnalysisCompleted, AnalysisCompletedData{AssignmentID: assignmentID, Submissions: len(submissions)})

	s.logger.Info().
		Uint("assignment_id", assignmentID).
		Int("submissions", len(submissions)).
		Bool("forced", force).
		Msg("class analysis stored")

	return response, nil
}

// GetStoredAnalysis returns nil without error when the assignment has not been analyzed.
func (s *analysisService) GetStoredAnalysis(ctx context.Context, actor Actor, assignmentID uint) (*dto.AnalysisResponse, error) {
	assignment, err := loadAssignment(ctx, s.assignments, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.access.requireOwner(actor, assignment.Classroom); err != nil {
		return nil, err
	}

	return s.lookup(ctx, assignmentID)
}

func (s *analysisService) lookup(ctx context.Context, assignmentID uint) (*dto.AnalysisResponse, error) {
	if cached, ok := s.cache.Get(ctx, assignmentID); ok {
		return &cached, nil
	}

	stored, err := s.analyses.GetByAssignmentID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}

	// Only the upsert path fills the cache so a read racing a delete cannot
	// restore an invalidated entry.
	response := dto.NewAnalysisResponse(*stored)
	return &response, nil
}

func (s *analysisService) generate(ctx context.Context, assignment models.Assignment, submissions []models.Submission) (classAnalysis, error) {
	if s.generator == nil {
		return classAnalysis{}, grading.ErrGeneratorUnavailable
	}

	raw, err := s.generator.Generate(ctx, ai.GenerateRequest{
		SystemPrompt: buildAnalysisSystemPrompt(),
		UserPrompt:   buildAnalysisUserPrompt(assignment, submissions),
		Schema:       classAnalysisSchema(),
	})
	if err != nil {
		return classAnalysis{}, err
	}

	var result classAnalysis
	if err := json.Unmarshal(raw, &result); err != nil {
		return classAnalysis{}, fmt.Errorf("decode class analysis: %w", err)
	}
	return result, nil
}

func nonNilInsights(items []models.StudentInsight) []models.StudentInsight {
	if items == nil {
		return []models.StudentInsight{}
	}
	return items
}
