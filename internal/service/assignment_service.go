package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nattapong2005/codementorai/internal/dto"
	"github.com/nattapong2005/codementorai/internal/grading"
	"github.com/nattapong2005/codementorai/internal/models"
	"github.com/nattapong2005/codementorai/internal/repository"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrInvalidFeedbackMode indicates an unsupported feedback mode in a request.
	ErrInvalidFeedbackMode = errors.New("invalid feedback mode")
)

// AssignmentService exposes assignment domain use cases.
type AssignmentService interface {
	ListByClassroom(ctx context.Context, actor Actor, classroomID uint) ([]dto.AssignmentResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type assignmentService struct {
	repo       repository.AssignmentRepository
	classrooms repository.ClassroomRepository
	access     accessPolicy
	cache      *AnalysisCache
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(repo repository.AssignmentRepository, classrooms repository.ClassroomRepository, cache *AnalysisCache, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		repo:       repo,
		classrooms: classrooms,
		access:     accessPolicy{classrooms: classrooms},
		cache:      cache,
		validator:  validate,
		logger:     logger.With().Str("component", "assignment_service").Logger(),
	}
}

func (s *assignmentService) ListByClassroom(ctx context.Context, actor Actor, classroomID uint) ([]dto.AssignmentResponse, error) {
	classroom, err := s.loadClassroom(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	if err := s.access.requireMember(ctx, actor, classroom); err != nil {
		return nil, err
	}

	assignments, err := s.repo.ListByClassroom(ctx, classroomID)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	assignment, err := loadAssignment(ctx, s.repo, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.access.requireMember(ctx, actor, assignment.Classroom); err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	mode := grading.ModeHint
	if strings.TrimSpace(payload.FeedbackMode) != "" {
		parsed, ok := grading.ParseMode(payload.FeedbackMode)
		if !ok {
			return dto.AssignmentResponse{}, fmt.Errorf("%w: %q", ErrInvalidFeedbackMode, payload.FeedbackMode)
		}
		mode = parsed
	}

	dueDate, err := time.Parse(time.RFC3339, payload.DueDate)
	if err != nil {
		return dto.AssignmentResponse{}, fmt.Errorf("invalid due date: %w", err)
	}

	classroom, err := s.loadClassroom(ctx, payload.ClassroomID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if err := s.access.requireOwner(actor, classroom); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		ClassroomID:  classroom.ID,
		Title:        strings.TrimSpace(payload.Title),
		Description:  strings.TrimSpace(payload.Description),
		MaxScore:     payload.MaxScore,
		FeedbackMode: string(mode),
		DueDate:      dueDate,
	}

	if err := s.repo.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Str("feedback_mode", assignment.FeedbackMode).Msg("assignment created")

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, actor Actor, id uint) error {
	assignment, err := loadAssignment(ctx, s.repo, id)
	if err != nil {
		return err
	}
	if err := s.access.requireOwner(actor, assignment.Classroom); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}
	s.cache.Invalidate(ctx, id)

	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	return nil
}

func (s *assignmentService) loadClassroom(ctx context.Context, id uint) (models.Classroom, error) {
	classroom, err := s.classrooms.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Classroom{}, ErrClassroomNotFound
		}
		return models.Classroom{}, err
	}
	return classroom, nil
}

func loadAssignment(ctx context.Context, repo repository.AssignmentRepository, id uint) (models.Assignment, error) {
	assignment, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}
