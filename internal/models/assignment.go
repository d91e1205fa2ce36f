package models

import "time"

// Assignment is a coding task within a classroom. FeedbackMode is fixed per
// assignment and selects the AI feedback variant of every submission.
type Assignment struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	ClassroomID  uint         `gorm:"not null;index" json:"classroom_id"`
	Title        string       `gorm:"size:255;not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	MaxScore     float64      `gorm:"not null;default:100" json:"max_score"`
	FeedbackMode string       `gorm:"size:16;not null;default:HINT" json:"feedback_mode"`
	DueDate      time.Time    `gorm:"not null" json:"due_date"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Classroom    Classroom    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Submissions  []Submission `json:"-"`
}
