package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nattapong2005/codementorai/internal/models"
)

// AnalysisRepository persists one class analysis per assignment.
type AnalysisRepository interface {
	Upsert(ctx context.Context, analysis *models.AssignmentAnalysis) error
	GetByAssignmentID(ctx context.Context, assignmentID uint) (*models.AssignmentAnalysis, error)
}

type analysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository builds the analysis repository.
func NewAnalysisRepository(db *gorm.DB) AnalysisRepository {
	return &analysisRepository{db: db}
}

// Upsert inserts the analysis or replaces the existing row for the same assignment.
// The stored row, including its id and timestamps, is written back into analysis.
func (r *analysisRepository) Upsert(ctx context.Context, analysis *models.AssignmentAnalysis) error {
	analysis.ID = 0
	analysis.UpdatedAt = time.Now()

	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assignment_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"strengths", "weaknesses", "needing_help", "top_performers", "updated_at"}),
		}).
		Create(analysis).Error
	if err != nil {
		return err
	}

	assignmentID := analysis.AssignmentID
	*analysis = models.AssignmentAnalysis{}
	return r.db.WithContext(ctx).Where("assignment_id = ?", assignmentID).First(analysis).Error
}

// GetByAssignmentID returns nil without error when no analysis exists yet.
func (r *analysisRepository) GetByAssignmentID(ctx context.Context, assignmentID uint) (*models.AssignmentAnalysis, error) {
	var analysis models.AssignmentAnalysis
	err := r.db.WithContext(ctx).Where("assignment_id = ?", assignmentID).First(&analysis).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}
