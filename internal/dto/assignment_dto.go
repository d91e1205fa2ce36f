package dto

import (
	"time"

	"github.com/nattapong2005/codementorai/internal/models"
)

// AssignmentCreateRequest describes the payload for creating a new assignment.
type AssignmentCreateRequest struct {
	ClassroomID  uint    `json:"classroom_id" validate:"required,gt=0"`
	Title        string  `json:"title" validate:"required,min=3,max=255"`
	Description  string  `json:"description" validate:"omitempty,max=10000"`
	MaxScore     float64 `json:"max_score" validate:"required,gt=0,lte=1000"`
	FeedbackMode string  `json:"feedback_mode" validate:"omitempty"`
	DueDate      string  `json:"due_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// AssignmentResponse is the serialized representation returned to API clients.
type AssignmentResponse struct {
	ID           uint      `json:"id"`
	ClassroomID  uint      `json:"classroom_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	MaxScore     float64   `json:"max_score"`
	FeedbackMode string    `json:"feedback_mode"`
	DueDate      time.Time `json:"due_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewAssignmentResponse converts an Assignment model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:           model.ID,
		ClassroomID:  model.ClassroomID,
		Title:        model.Title,
		Description:  model.Description,
		MaxScore:     model.MaxScore,
		FeedbackMode: model.FeedbackMode,
		DueDate:      model.DueDate,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of assignments into DTOs.
func NewAssignmentResponseSlice(models []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(models))
	for _, assignment := range models {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}
