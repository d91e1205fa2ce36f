package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/nattapong2005/codementorai/internal/grading"
	"github.com/nattapong2005/codementorai/internal/models"
	"github.com/nattapong2005/codementorai/pkg/ai"
)

const (
	maxAnalysisCodeRunes     = 1500
	maxAnalysisFeedbackRunes = 300
	truncationMarker         = "\n... [truncated]"
)

// classAnalysis mirrors the aggregate schema returned by the generator.
type classAnalysis struct {
	OverallStrengths    string                  `json:"overallStrengths"`
	OverallWeaknesses   string                  `json:"overallWeaknesses"`
	StudentsNeedingHelp []models.StudentInsight `json:"studentsNeedingHelp"`
	TopPerformers       []models.StudentInsight `json:"topPerformers"`
}

func classAnalysisSchema() ai.Schema {
	insight := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"studentName": {Type: jsonschema.String, Description: "Student name exactly as given in the submissions"},
			"reason":      {Type: jsonschema.String},
		},
		Required:             []string{"studentName", "reason"},
		AdditionalProperties: false,
	}

	return ai.Schema{
		Name:        "class_performance_analysis",
		Description: "Aggregate analysis of every submission for one assignment",
		Definition: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"overallStrengths":    {Type: jsonschema.String, Description: "What the class did well"},
				"overallWeaknesses":   {Type: jsonschema.String, Description: "Common mistakes and misconceptions"},
				"studentsNeedingHelp": {Type: jsonschema.Array, Items: &insight},
				"topPerformers":       {Type: jsonschema.Array, Items: &insight},
			},
			Required:             []string{"overallStrengths", "overallWeaknesses", "studentsNeedingHelp", "topPerformers"},
			AdditionalProperties: false,
		},
	}
}

func buildAnalysisSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are an experienced programming teacher reviewing every submission of one assignment for a whole class.\n\n")
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("1. Summarize the overall strengths of the class.\n")
	sb.WriteString("2. Summarize the overall weaknesses and common mistakes.\n")
	sb.WriteString("3. List the students who need help and the top performers, each with a short reason. ")
	sb.WriteString("Use the student names exactly as they appear in the submissions.\n\n")
	sb.WriteString("Respond ONLY with a JSON object matching the provided schema.\n")
	return sb.String()
}

func buildAnalysisUserPrompt(assignment models.Assignment, submissions []models.Submission) string {
	var sb strings.Builder
	sb.WriteString("ASSIGNMENT TITLE: " + assignment.Title + "\n")
	sb.WriteString("ASSIGNMENT DESCRIPTION:\n" + assignment.Description + "\n")
	sb.WriteString("MAX SCORE: " + strconv.FormatFloat(assignment.MaxScore, 'f', -1, 64) + "\n")
	sb.WriteString(fmt.Sprintf("SUBMISSIONS: %d\n", len(submissions)))

	for idx, submission := range submissions {
		sb.WriteString("\n")
		sb.WriteString(studentBlock(idx, assignment, submission))
	}
	return sb.String()
}

func studentBlock(idx int, assignment models.Assignment, submission models.Submission) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("=== STUDENT: %s ===\n", studentLabel(idx, submission)))

	if submission.IsGraded() {
		sb.WriteString("SCORE: " + strconv.FormatFloat(submission.Score, 'f', -1, 64) + "/" +
			strconv.FormatFloat(assignment.MaxScore, 'f', -1, 64) + "\n")
	} else {
		sb.WriteString("SCORE: ungraded\n")
	}

	if base, err := grading.DecodeBase(submission.AIFeedback); err == nil && len(submission.AIFeedback) > 0 {
		if text := strings.TrimSpace(base.Feedback); text != "" {
			sb.WriteString("PREVIOUS FEEDBACK: " + truncateRunes(text, maxAnalysisFeedbackRunes, "...") + "\n")
		}
		if len(base.MistakeTags) > 0 {
			sb.WriteString("MISTAKE TAGS: " + strings.Join(base.MistakeTags, ", ") + "\n")
		}
	}

	if submission.TeacherFeedback != nil && strings.TrimSpace(*submission.TeacherFeedback) != "" {
		sb.WriteString("TEACHER FEEDBACK: " + truncateRunes(strings.TrimSpace(*submission.TeacherFeedback), maxAnalysisFeedbackRunes, "...") + "\n")
	}

	sb.WriteString("CODE:\n")
	sb.WriteString(truncateRunes(submission.Code, maxAnalysisCodeRunes, truncationMarker))
	sb.WriteString("\n")
	return sb.String()
}

// studentLabel falls back to a 1-based placeholder when the student has no name.
func studentLabel(idx int, submission models.Submission) string {
	if submission.Student != nil {
		if name := strings.TrimSpace(submission.Student.Name); name != "" {
			return name
		}
	}
	return fmt.Sprintf("Student %d", idx+1)
}

func truncateRunes(value string, limit int, marker string) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + marker
}
