package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/nattapong2005/codementorai/internal/dto"
	"github.com/nattapong2005/codementorai/internal/grading"
	"github.com/nattapong2005/codementorai/internal/models"
	"github.com/nattapong2005/codementorai/internal/observability"
	"github.com/nattapong2005/codementorai/internal/repository"
)

var (
	// ErrSubmissionNotFound indicates the submission does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrEmptyCode indicates a submission without any code.
	ErrEmptyCode = errors.New("code must not be empty")
	// ErrScoreOutOfRange indicates a teacher score outside [0, max score].
	ErrScoreOutOfRange = errors.New("score out of range")
)

// Grader produces feedback for one submission and never fails. The bool is
// true when the feedback is the fallback payload.
type Grader interface {
	Grade(ctx context.Context, req grading.Request) (grading.Feedback, bool)
}

// SubmissionService exposes the submission intake and review use cases.
type SubmissionService interface {
	SubmitAndGrade(ctx context.Context, actor Actor, payload dto.SubmitCodeRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error)
	ListForAssignment(ctx context.Context, actor Actor, assignmentID uint) ([]dto.SubmissionResponse, error)
	UpdateTeacherFeedback(ctx context.Context, actor Actor, id uint, payload dto.TeacherFeedbackRequest) (dto.SubmissionResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type submissionService struct {
	repo        repository.SubmissionRepository
	assignments repository.AssignmentRepository
	access      accessPolicy
	grader      Grader
	events      *EventPublisher
	cache       *AnalysisCache
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// SubmissionServiceDeps groups the collaborators of the submission service.
type SubmissionServiceDeps struct {
	Submissions repository.SubmissionRepository
	Assignments repository.AssignmentRepository
	Classrooms  repository.ClassroomRepository
	Grader      Grader
	Events      *EventPublisher
	Cache       *AnalysisCache
	Validator   *validator.Validate
	Logger      zerolog.Logger
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(deps SubmissionServiceDeps) SubmissionService {
	return &submissionService{
		repo:        deps.Submissions,
		assignments: deps.Assignments,
		access:      accessPolicy{classrooms: deps.Classrooms},
		grader:      deps.Grader,
		events:      deps.Events,
		cache:       deps.Cache,
		validator:   deps.Validator,
		sanitizer:   bluemonday.UGCPolicy(),
		logger:      deps.Logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/nattapong2005/codementorai/internal/service/submission"),
		now:         time.Now,
	}
}

// SubmitAndGrade stores the code as a pending submission, grades it and persists the result.
// If the final update fails the pending row is left in place and the error is returned.
func (s *submissionService) SubmitAndGrade(ctx context.Context, actor Actor, payload dto.SubmitCodeRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if strings.TrimSpace(payload.Code) == "" {
		return dto.SubmissionResponse{}, ErrEmptyCode
	}

	ctx, span := s.tracer.Start(ctx, "submissions.submit_and_grade", trace.WithAttributes(
		attribute.Int64("submission.assignment_id", int64(payload.AssignmentID)),
		attribute.Int64("submission.student_id", int64(actor.ID)),
	))
	defer span.End()

	assignment, err := loadAssignment(ctx, s.assignments, payload.AssignmentID)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}
	if err := s.access.requireMember(ctx, actor, assignment.Classroom); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	mode, ok := grading.ParseMode(assignment.FeedbackMode)
	if !ok {
		s.logger.Warn().Uint("assignment_id", assignment.ID).Str("feedback_mode", assignment.FeedbackMode).Msg("unknown feedback mode, grading with hint")
	}

	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    actor.ID,
		Code:         payload.Code,
		Status:       models.SubmissionStatusPending,
		Score:        0,
		SubmittedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, err
	}

	feedback, fallback := s.grader.Grade(ctx, grading.Request{
		Code:        submission.Code,
		Title:       assignment.Title,
		Description: assignment.Description,
		Mode:        mode,
		MaxScore:    assignment.MaxScore,
	})

	raw, err := json.Marshal(feedback)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionResponse{}, fmt.Errorf("encode feedback: %w", err)
	}

	submission.Status = models.SubmissionStatusDone
	submission.Score = feedback.Common().Score
	submission.AIFeedback = datatypes.JSON(raw)
	if err := s.repo.Update(ctx, &submission); err != nil {
		span.RecordError(err)
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to store graded submission")
		return dto.SubmissionResponse{}, err
	}

	outcome := "graded"
	if fallback {
		outcome = "fallback"
	}
	observability.GradingOutcomes().WithLabelValues(string(mode), outcome).Inc()
	span.SetAttributes(attribute.String("grading.outcome", outcome))

	s.events.Publish(ctx, EventSubmissionGraded, SubmissionGradedData{
		SubmissionID: submission.ID,
		AssignmentID: submission.AssignmentID,
		StudentID:    submission.StudentID,
		Mode:         string(feedback.Mode()),
		Score:        submission.Score,
		Fallback:     fallback,
	})

	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", assignment.ID).
		Str("mode", string(mode)).
		Str("outcome", outcome).
		Float64("score", submission.Score).
		Msg("submission graded")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}

	if !actor.IsTeacher() {
		if submission.StudentID != actor.ID {
			return dto.SubmissionResponse{}, ErrForbidden
		}
	} else if err := s.access.requireOwner(actor, submission.Assignment.Classroom); err != nil {
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

// ListForAssignment returns every submission to the owning teacher and only their own to a student.
func (s *submissionService) ListForAssignment(ctx context.Context, actor Actor, assignmentID uint) ([]dto.SubmissionResponse, error) {
	assignment, err := loadAssignment(ctx, s.assignments, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := s.access.requireMember(ctx, actor, assignment.Classroom); err != nil {
		return nil, err
	}

	filter := repository.SubmissionFilter{AssignmentID: assignmentID}
	if !actor.IsTeacher() {
		studentID := actor.ID
		filter.StudentID = &studentID
	}

	submissions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) UpdateTeacherFeedback(ctx context.Context, actor Actor, id uint, payload dto.TeacherFeedbackRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.load(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if err := s.access.requireOwner(actor, submission.Assignment.Classroom); err != nil {
		return dto.SubmissionResponse{}, err
	}

	if payload.Score != nil {
		if *payload.Score < 0 || *payload.Score > submission.Assignment.MaxScore {
			return dto.SubmissionResponse{}, fmt.Errorf("%w: must be between 0 and %g", ErrScoreOutOfRange, submission.Assignment.MaxScore)
		}
		submission.Score = *payload.Score
	}

	if payload.Status != nil {
		submission.Status = *payload.Status
	}

	if payload.TeacherFeedback != nil {
		clean := strings.TrimSpace(s.sanitizer.Sanitize(*payload.TeacherFeedback))
		if clean == "" {
			submission.TeacherFeedback = nil
		} else {
			submission.TeacherFeedback = &clean
		}
	}

	if err := s.repo.Update(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", submission.ID).Uint("teacher_id", actor.ID).Msg("submission reviewed")

	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) Delete(ctx context.Context, actor Actor, id uint) error {
	submission, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.requireOwner(actor, submission.Assignment.Classroom); err != nil {
		return err
	}

	if _, err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubmissionNotFound
		}
		return err
	}
	s.cache.Invalidate(ctx, submission.AssignmentID)

	s.logger.Info().Uint("submission_id", id).Uint("assignment_id", submission.AssignmentID).Msg("submission deleted")
	return nil
}

func (s *submissionService) load(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}
