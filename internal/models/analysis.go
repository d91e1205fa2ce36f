package models

import (
	"time"

	"gorm.io/datatypes"
)

// StudentInsight names a student and the reason they were singled out.
type StudentInsight struct {
	StudentName string `json:"studentName"`
	Reason      string `json:"reason"`
}

// AssignmentAnalysis is the AI summary of a whole class's submissions.
// At most one row exists per assignment.
type AssignmentAnalysis struct {
	ID            uint                                `gorm:"primaryKey" json:"id"`
	AssignmentID  uint                                `gorm:"not null;uniqueIndex" json:"assignment_id"`
	Strengths     string                              `gorm:"type:text" json:"strengths"`
	Weaknesses    string                              `gorm:"type:text" json:"weaknesses"`
	NeedingHelp   datatypes.JSONSlice[StudentInsight] `json:"needing_help"`
	TopPerformers datatypes.JSONSlice[StudentInsight] `json:"top_performers"`
	CreatedAt     time.Time                           `json:"created_at"`
	UpdatedAt     time.Time                           `json:"updated_at"`
	Assignment    Assignment                          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}
