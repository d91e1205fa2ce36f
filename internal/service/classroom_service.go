package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nattapong2005/codementorai/internal/dto"
	"github.com/nattapong2005/codementorai/internal/models"
	"github.com/nattapong2005/codementorai/internal/repository"
)

const joinCodeLength = 8

// ErrClassroomNotFound indicates the requested classroom does not exist.
var ErrClassroomNotFound = errors.New("classroom not found")

// ClassroomService exposes classroom use cases.
type ClassroomService interface {
	Create(ctx context.Context, actor Actor, payload dto.ClassroomCreateRequest) (dto.ClassroomResponse, error)
	List(ctx context.Context, actor Actor) ([]dto.ClassroomResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.ClassroomResponse, error)
	Join(ctx context.Context, actor Actor, payload dto.ClassroomJoinRequest) (dto.ClassroomResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type classroomService struct {
	repo      repository.ClassroomRepository
	access    accessPolicy
	cache     *AnalysisCache
	validator *validator.Validate
	logger    zerolog.Logger
	newCode   func() string
}

// NewClassroomService builds the classroom service.
func NewClassroomService(repo repository.ClassroomRepository, cache *AnalysisCache, validate *validator.Validate, logger zerolog.Logger) ClassroomService {
	return &classroomService{
		repo:      repo,
		access:    accessPolicy{classrooms: repo},
		cache:     cache,
		validator: validate,
		logger:    logger.With().Str("component", "classroom_service").Logger(),
		newCode:   generateJoinCode,
	}
}

func generateJoinCode() string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return code[:joinCodeLength]
}

func (s *classroomService) Create(ctx context.Context, actor Actor, payload dto.ClassroomCreateRequest) (dto.ClassroomResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassroomResponse{}, err
	}
	if !actor.IsTeacher() {
		return dto.ClassroomResponse{}, ErrForbidden
	}

	classroom := models.Classroom{
		Name:        strings.TrimSpace(payload.Name),
		Description: strings.TrimSpace(payload.Description),
		JoinCode:    s.newCode(),
		TeacherID:   actor.ID,
	}
	if err := s.repo.Create(ctx, &classroom); err != nil {
		return dto.ClassroomResponse{}, err
	}

	s.logger.Info().Uint("classroom_id", classroom.ID).Uint("teacher_id", actor.ID).Msg("classroom created")
	return dto.NewClassroomResponse(classroom, true), nil
}

func (s *classroomService) List(ctx context.Context, actor Actor) ([]dto.ClassroomResponse, error) {
	var (
		classrooms []models.Classroom
		err        error
	)
	if actor.IsTeacher() {
		classrooms, err = s.repo.ListForTeacher(ctx, actor.ID)
	} else {
		classrooms, err = s.repo.ListForStudent(ctx, actor.ID)
	}
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ClassroomResponse, 0, len(classrooms))
	for _, classroom := range classrooms {
		responses = append(responses, dto.NewClassroomResponse(classroom, actor.IsTeacher()))
	}
	return responses, nil
}

func (s *classroomService) Get(ctx context.Context, actor Actor, id uint) (dto.ClassroomResponse, error) {
	classroom, err := s.load(ctx, id)
	if err != nil {
		return dto.ClassroomResponse{}, err
	}
	if err := s.access.requireMember(ctx, actor, classroom); err != nil {
		return dto.ClassroomResponse{}, err
	}

	return dto.NewClassroomResponse(classroom, actor.IsTeacher()), nil
}

func (s *classroomService) Join(ctx context.Context, actor Actor, payload dto.ClassroomJoinRequest) (dto.ClassroomResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ClassroomResponse{}, err
	}
	if actor.IsTeacher() {
		return dto.ClassroomResponse{}, ErrForbidden
	}

	classroom, err := s.repo.GetByJoinCode(ctx, strings.ToUpper(strings.TrimSpace(payload.Code)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassroomResponse{}, ErrClassroomNotFound
		}
		return dto.ClassroomResponse{}, err
	}

	if err := s.repo.Enroll(ctx, classroom.ID, actor.ID); err != nil {
		return dto.ClassroomResponse{}, err
	}

	s.logger.Info().Uint("classroom_id", classroom.ID).Uint("student_id", actor.ID).Msg("student joined classroom")
	return dto.NewClassroomResponse(classroom, false), nil
}

func (s *classroomService) Delete(ctx context.Context, actor Actor, id uint) error {
	classroom, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.access.requireOwner(actor, classroom); err != nil {
		return err
	}

	var assignmentIDs []uint
	for _, assignment := range classroom.Assignments {
		assignmentIDs = append(assignmentIDs, assignment.ID)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassroomNotFound
		}
		return err
	}
	s.cache.Invalidate(ctx, assignmentIDs...)

	s.logger.Info().Uint("classroom_id", id).Msg("classroom deleted")
	return nil
}

func (s *classroomService) load(ctx context.Context, id uint) (models.Classroom, error) {
	classroom, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Classroom{}, ErrClassroomNotFound
		}
		return models.Classroom{}, err
	}
	return classroom, nil
}
