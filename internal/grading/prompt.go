package grading

import (
	"strconv"
	"strings"
)

func buildSystemPrompt(req Request, selection Selection) string {
	var sb strings.Builder
	sb.WriteString("You are an experienced programming teacher grading a student's code submission.\n\n")
	sb.WriteString("ASSIGNMENT TITLE: " + req.Title + "\n")
	sb.WriteString("ASSIGNMENT DESCRIPTION:\n" + req.Description + "\n\n")
	sb.WriteString("MAX SCORE: " + formatScore(req.MaxScore) + "\n\n")

	sb.WriteString("GRADING RUBRIC:\n")
	sb.WriteString("- 60% correctness: does the code solve the assignment and produce the expected result?\n")
	sb.WriteString("- 20% logic: is the algorithm sound and free of logical flaws?\n")
	sb.WriteString("- 20% code quality: naming, structure, readability and style.\n\n")

	sb.WriteString("OVERRIDE RULES:\n")
	sb.WriteString("- If the code has a syntax error that prevents it from running, the score MUST be 0 and syntaxErrorFound MUST be true.\n")
	sb.WriteString("- If the code is unrelated to the assignment, the score MUST be 0.\n")
	sb.WriteString("- The score must never exceed " + formatScore(req.MaxScore) + ".\n\n")

	sb.WriteString(selection.Instruction)
	sb.WriteString("\n\nRespond ONLY with a JSON object matching the provided schema.\n")
	return sb.String()
}

func buildUserPrompt(req Request) string {
	return req.Code
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
