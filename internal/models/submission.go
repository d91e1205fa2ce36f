package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission lifecycle states.
const (
	SubmissionStatusPending = "PENDING"
	SubmissionStatusLate    = "LATE"
	SubmissionStatusDone    = "DONE"
	SubmissionStatusMissing = "MISSING"
)

// Submission is a student's code for an assignment together with its grading result.
type Submission struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	AssignmentID    uint           `gorm:"not null;index" json:"assignment_id"`
	StudentID       uint           `gorm:"not null;index" json:"student_id"`
	Code            string         `gorm:"type:text" json:"code"`
	Status          string         `gorm:"size:16;not null" json:"status"`
	Score           float64        `gorm:"not null;default:0" json:"score"`
	AIFeedback      datatypes.JSON `json:"ai_feedback"`
	TeacherFeedback *string        `gorm:"type:text" json:"teacher_feedback"`
	SubmittedAt     time.Time      `gorm:"not null" json:"submitted_at"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Assignment      Assignment     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student         *User          `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsGraded reports whether the submission has been through a grading pass.
func (s Submission) IsGraded() bool {
	return s.Status == SubmissionStatusDone
}
