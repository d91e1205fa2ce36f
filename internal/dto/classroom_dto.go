package dto

import (
	"time"

	"github.com/nattapong2005/codementorai/internal/models"
)

// ClassroomCreateRequest describes the payload for creating a classroom.
type ClassroomCreateRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// ClassroomJoinRequest carries the join code a student received from the teacher.
type ClassroomJoinRequest struct {
	Code string `json:"code" validate:"required,alphanum,min=4,max=16"`
}

// ClassroomResponse is the serialized representation of a classroom.
type ClassroomResponse struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	JoinCode    string    `json:"join_code,omitempty"`
	TeacherID   uint      `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewClassroomResponse maps a classroom model. The join code is only exposed to the owner.
func NewClassroomResponse(model models.Classroom, includeCode bool) ClassroomResponse {
	response := ClassroomResponse{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		TeacherID:   model.TeacherID,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	if includeCode {
		response.JoinCode = model.JoinCode
	}
	return response
}
