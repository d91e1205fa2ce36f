package repository

import (
	"gorm.io/gorm"

	"github.com/nattapong2005/codementorai/internal/models"
)

// deleteAssignments removes assignments together with their submissions and
// analyses inside tx, so the cascade holds even without database foreign keys.
func deleteAssignments(tx *gorm.DB, assignmentIDs []uint) error {
	if len(assignmentIDs) == 0 {
		return nil
	}
	if err := tx.Where("assignment_id IN ?", assignmentIDs).Delete(&models.AssignmentAnalysis{}).Error; err != nil {
		return err
	}
	if err := tx.Where("assignment_id IN ?", assignmentIDs).Delete(&models.Submission{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", assignmentIDs).Delete(&models.Assignment{}).Error
}
