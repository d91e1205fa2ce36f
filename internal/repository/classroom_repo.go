package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nattapong2005/codementorai/internal/models"
)

// ClassroomRepository defines persistence for classrooms and enrollments.
type ClassroomRepository interface {
	Create(ctx context.Context, classroom *models.Classroom) error
	GetByID(ctx context.Context, id uint) (models.Classroom, error)
	GetByJoinCode(ctx context.Context, code string) (models.Classroom, error)
	ListForTeacher(ctx context.Context, teacherID uint) ([]models.Classroom, error)
	ListForStudent(ctx context.Context, studentID uint) ([]models.Classroom, error)
	Enroll(ctx context.Context, classroomID, studentID uint) error
	IsEnrolled(ctx context.Context, classroomID, studentID uint) (bool, error)
	Delete(ctx context.Context, id uint) error
}

type classroomRepository struct {
	db *gorm.DB
}

// NewClassroomRepository constructs the repository.
func NewClassroomRepository(db *gorm.DB) ClassroomRepository {
	return &classroomRepository{db: db}
}

func (r *classroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(classroom).Error
}

func (r *classroomRepository) GetByID(ctx context.Context, id uint) (models.Classroom, error) {
	var classroom models.Classroom
	if err := r.db.WithContext(ctx).Preload("Assignments").First(&classroom, id).Error; err != nil {
		return models.Classroom{}, err
	}
	return classroom, nil
}

func (r *classroomRepository) GetByJoinCode(ctx context.Context, code string) (models.Classroom, error) {
	var classroom models.Classroom
	if err := r.db.WithContext(ctx).Where("join_code = ?", code).First(&classroom).Error; err != nil {
		return models.Classroom{}, err
	}
	return classroom, nil
}

func (r *classroomRepository) ListForTeacher(ctx context.Context, teacherID uint) ([]models.Classroom, error) {
	var classrooms []models.Classroom
	if err := r.db.WithContext(ctx).
		Where("teacher_id = ?", teacherID).
		Order("created_at DESC, id DESC").
		Find(&classrooms).Error; err != nil {
		return nil, err
	}
	return classrooms, nil
}

func (r *classroomRepository) ListForStudent(ctx context.Context, studentID uint) ([]models.Classroom, error) {
	var classrooms []models.Classroom
	if err := r.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.classroom_id = classrooms.id").
		Where("enrollments.student_id = ?", studentID).
		Order("classrooms.created_at DESC, classrooms.id DESC").
		Find(&classrooms).Error; err != nil {
		return nil, err
	}
	return classrooms, nil
}

// Enroll is idempotent: joining a classroom twice keeps a single enrollment.
func (r *classroomRepository) Enroll(ctx context.Context, classroomID, studentID uint) error {
	enrollment := models.Enrollment{ClassroomID: classroomID, StudentID: studentID}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "classroom_id"}, {Name: "student_id"}},
			DoNothing: true,
		}).
		Create(&enrollment).Error
}

func (r *classroomRepository) IsEnrolled(ctx context.Context, classroomID, studentID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("classroom_id = ? AND student_id = ?", classroomID, studentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Delete removes the classroom with its enrollments, assignments, submissions and analyses.
func (r *classroomRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var classroom models.Classroom
		if err := tx.Select("id").First(&classroom, id).Error; err != nil {
			return err
		}

		var assignmentIDs []uint
		if err := tx.Model(&models.Assignment{}).Where("classroom_id = ?", id).Pluck("id", &assignmentIDs).Error; err != nil {
			return err
		}
		if err := deleteAssignments(tx, assignmentIDs); err != nil {
			return err
		}
		if err := tx.Where("classroom_id = ?", id).Delete(&models.Enrollment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Classroom{}, id).Error
	})
}
