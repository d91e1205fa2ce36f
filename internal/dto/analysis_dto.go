package dto

import (
	"time"

	"github.com/nattapong2005/codementorai/internal/models"
)

// StudentInsightResponse names a student singled out by the class analysis.
type StudentInsightResponse struct {
	StudentName string `json:"student_name"`
	Reason      string `json:"reason"`
}

// AnalysisResponse is the stored class performance analysis of one assignment.
type AnalysisResponse struct {
	ID                  uint                     `json:"id"`
	AssignmentID        uint                     `json:"assignment_id"`
	OverallStrengths    string                   `json:"overall_strengths"`
	OverallWeaknesses   string                   `json:"overall_weaknesses"`
	StudentsNeedingHelp []StudentInsightResponse `json:"students_needing_help"`
	TopPerformers       []StudentInsightResponse `json:"top_performers"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

// NewAnalysisResponse converts the stored analysis into its API shape.
func NewAnalysisResponse(model models.AssignmentAnalysis) AnalysisResponse {
	return AnalysisResponse{
		ID:                  model.ID,
		AssignmentID:        model.AssignmentID,
		OverallStrengths:    model.Strengths,
		OverallWeaknesses:   model.Weaknesses,
		StudentsNeedingHelp: newInsights(model.NeedingHelp),
		TopPerformers:       newInsights(model.TopPerformers),
		CreatedAt:           model.CreatedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

func newInsights(items []models.StudentInsight) []StudentInsightResponse {
	responses := make([]StudentInsightResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, StudentInsightResponse{StudentName: item.StudentName, Reason: item.Reason})
	}
	return responses
}
