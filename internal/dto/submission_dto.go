package dto

import (
	"encoding/json"
	"time"

	"github.com/nattapong2005/codementorai/internal/models"
)

// SubmitCodeRequest is the payload a student sends to submit code for grading.
type SubmitCodeRequest struct {
	AssignmentID uint   `json:"assignment_id" validate:"required,gt=0"`
	Code         string `json:"code" validate:"required,max=100000"`
}

// TeacherFeedbackRequest lets a teacher annotate, re-score or re-open a submission.
type TeacherFeedbackRequest struct {
	Status          *string  `json:"status" validate:"omitempty,oneof=PENDING LATE DONE MISSING"`
	TeacherFeedback *string  `json:"teacher_feedback" validate:"omitempty,max=5000"`
	Score           *float64 `json:"score" validate:"omitempty,gte=0"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID              uint            `json:"id"`
	AssignmentID    uint            `json:"assignment_id"`
	StudentID       uint            `json:"student_id"`
	Code            string          `json:"code"`
	Status          string          `json:"status"`
	Score           float64         `json:"score"`
	AIFeedback      json.RawMessage `json:"ai_feedback"`
	TeacherFeedback *string         `json:"teacher_feedback"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Student         *StudentLite    `json:"student,omitempty"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:              model.ID,
		AssignmentID:    model.AssignmentID,
		StudentID:       model.StudentID,
		Code:            model.Code,
		Status:          model.Status,
		Score:           model.Score,
		TeacherFeedback: model.TeacherFeedback,
		SubmittedAt:     model.SubmittedAt,
		UpdatedAt:       model.UpdatedAt,
	}

	if len(model.AIFeedback) > 0 {
		response.AIFeedback = json.RawMessage(model.AIFeedback)
	}

	if model.Student != nil && model.Student.ID != 0 {
		response.Student = &StudentLite{ID: model.Student.ID, Name: model.Student.Name}
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(models []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(models))
	for _, submission := range models {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
