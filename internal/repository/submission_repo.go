package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nattapong2005/codementorai/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	AssignmentID     uint
	StudentID        *uint
	NonEmptyCodeOnly bool
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
	Update(ctx context.Context, submission *models.Submission) error
	Delete(ctx context.Context, id uint) (models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// List returns the submissions of one assignment with the owning student preloaded,
// oldest first so prompt ordering is stable.
func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Student").
		Where("assignment_id = ?", filter.AssignmentID)

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.NonEmptyCodeOnly {
		query = query.Where("code IS NOT NULL AND TRIM(code) <> ''")
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at ASC, id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Assignment.Classroom").
		Preload("Student").
		First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(submission).Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(submission).Error
}

// Delete removes the submission and the analysis of its assignment in one transaction.
func (r *submissionRepository) Delete(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&submission, id).Error; err != nil {
			return err
		}
		if err := tx.Where("assignment_id = ?", submission.AssignmentID).Delete(&models.AssignmentAnalysis{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Submission{}, submission.ID).Error
	})
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}
