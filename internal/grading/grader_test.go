package grading

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nattapong2005/codementorai/pkg/ai"
)

type stubGenerator struct {
	response string
	err      error
	requests []ai.GenerateRequest
}

func (s *stubGenerator) Generate(ctx context.Context, req ai.GenerateRequest) (json.RawMessage, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(s.response), nil
}

type stubTranslator map[string]string

func (s stubTranslator) T(ctx context.Context, id string) string {
	if message, ok := s[id]; ok {
		return message
	}
	return id
}

const baseJSON = `"score": 8, "feedback": "Nice work", "mistakeTags": ["off-by-one"], "syntaxErrorFound": false,
	"codeQuality": [{"aspect": "naming", "description": "clear names", "appropriate": true}]`

func marshalKeys(t *testing.T, feedback Feedback) []string {
	t.Helper()
	raw, err := json.Marshal(feedback)
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func TestGraderClampsScoreToMaximum(t *testing.T) {
	generator := &stubGenerator{response: `{"score": 15, "feedback": "ok", "mistakeTags": [], "syntaxErrorFound": false,
		"codeQuality": [], "logicError": "none", "correctedCode": "print('hi')", "explanation": "fine"}`}
	grader := NewGrader(generator, nil, zerolog.Nop())

	feedback, fallback := grader.Grade(context.Background(), Request{Code: "print('hi')", Title: "Hello", Mode: ModeAnswer, MaxScore: 10})
	require.False(t, fallback)

	answer, ok := feedback.(*AnswerFeedback)
	require.True(t, ok)
	require.Equal(t, 10.0, answer.Score)
	require.Equal(t, "print('hi')", answer.CorrectedCode)
}

func TestGraderClampsNegativeScore(t *testing.T) {
	generator := &stubGenerator{response: `{"score": -3, "feedback": "x", "mistakeTags": [], "syntaxErrorFound": true, "codeQuality": [], "hint": "h"}`}
	grader := NewGrader(generator, nil, zerolog.Nop())

	feedback, _ := grader.Grade(context.Background(), Request{Code: "x", Mode: ModeHint, MaxScore: 10})
	require.Equal(t, 0.0, feedback.Common().Score)
}

func TestGraderProducesOnlyModeFields(t *testing.T) {
	cases := []struct {
		mode     FeedbackMode
		extra    string
		expected []string
	}{
		{ModeNone, ``, nil},
		{ModeHint, `, "hint": "look at the loop bounds"`, []string{"hint"}},
		{ModeConcept, `, "concept": "Loops repeat a block"`, []string{"concept"}},
		{ModeAnswer, `, "logicError": "bound", "correctedCode": "for i in range(3): pass", "explanation": "use < not <="`, []string{"correctedCode", "explanation", "logicError"}},
	}

	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			generator := &stubGenerator{response: `{` + baseJSON + tc.extra + `}`}
			grader := NewGrader(generator, nil, zerolog.Nop())

			feedback, _ := grader.Grade(context.Background(), Request{Code: "code", Mode: tc.mode, MaxScore: 10})
			require.Equal(t, tc.mode, feedback.Mode())

			expected := append([]string{"codeQuality", "feedback", "mistakeTags", "score", "syntaxErrorFound"}, tc.expected...)
			sort.Strings(expected)
			require.Equal(t, expected, marshalKeys(t, feedback))

			require.Len(t, generator.requests, 1)
			require.Equal(t, Select(tc.mode).Schema.Name, generator.requests[0].Schema.Name)
			require.Equal(t, "code", generator.requests[0].UserPrompt)
		})
	}
}

func TestGraderBlanksFeedbackInNoneMode(t *testing.T) {
	generator := &stubGenerator{response: `{` + baseJSON + `}`}
	grader := NewGrader(generator, nil, zerolog.Nop())

	feedback, _ := grader.Grade(context.Background(), Request{Code: "code", Mode: ModeNone, MaxScore: 10})
	require.Equal(t, "", feedback.Common().Feedback)
	require.Contains(t, generator.requests[0].SystemPrompt, `Set "feedback" to an empty string`)
}

func TestGraderFallsBackOnGenerationError(t *testing.T) {
	generator := &stubGenerator{err: errors.New("provider down")}
	translator := stubTranslator{FallbackMessageID: "ระบบ AI ไม่พร้อมใช้งานชั่วคราว"}
	grader := NewGrader(generator, translator, zerolog.Nop())

	feedback, fallback := grader.Grade(context.Background(), Request{Code: "code", Mode: ModeAnswer, MaxScore: 10})
	require.True(t, fallback)

	none, ok := feedback.(*NoneFeedback)
	require.True(t, ok)
	require.Equal(t, 0.0, none.Score)
	require.Equal(t, "ระบบ AI ไม่พร้อมใช้งานชั่วคราว", none.Feedback)
	require.Equal(t, []string{SystemErrorTag}, none.MistakeTags)
	require.False(t, none.SyntaxErrorFound)
	require.Empty(t, none.CodeQuality)
}

func TestGraderFallsBackOnMalformedResponse(t *testing.T) {
	generator := &stubGenerator{response: `{"score": "high"}`}
	grader := NewGrader(generator, nil, zerolog.Nop())

	feedback, fallback := grader.Grade(context.Background(), Request{Code: "code", Mode: ModeHint, MaxScore: 10})
	require.True(t, fallback)
	require.Equal(t, defaultFallbackMessage, feedback.Common().Feedback)
}

func TestGraderWithoutGeneratorFallsBack(t *testing.T) {
	grader := NewGrader(nil, nil, zerolog.Nop())

	_, err := grader.Evaluate(context.Background(), Request{Mode: ModeHint, MaxScore: 5})
	require.ErrorIs(t, err, ErrGeneratorUnavailable)
	_, fallback := grader.Grade(context.Background(), Request{Mode: ModeHint, MaxScore: 5})
	require.True(t, fallback)
}

func TestGraderKeepsModelSystemErrorTag(t *testing.T) {
	generator := &stubGenerator{response: `{"score": 2, "feedback": "Crashes on start", "mistakeTags": ["SystemError"],
		"syntaxErrorFound": false, "codeQuality": [], "hint": "read the traceback"}`}
	grader := NewGrader(generator, nil, zerolog.Nop())

	feedback, fallback := grader.Grade(context.Background(), Request{Code: "import sys; sys.exit(1)", Mode: ModeHint, MaxScore: 10})
	require.False(t, fallback)
	require.Equal(t, []string{SystemErrorTag}, feedback.Common().MistakeTags)
	require.Equal(t, 2.0, feedback.Common().Score)
}

func TestSystemPromptCarriesRubricAndOverrides(t *testing.T) {
	req := Request{Title: "FizzBuzz", Description: "Print fizz buzz", Mode: ModeConcept, MaxScore: 20}
	prompt := buildSystemPrompt(req, Select(req.Mode))

	require.Contains(t, prompt, "FizzBuzz")
	require.Contains(t, prompt, "Print fizz buzz")
	require.Contains(t, prompt, "MAX SCORE: 20")
	require.Contains(t, prompt, "60% correctness")
	require.Contains(t, prompt, "20% logic")
	require.Contains(t, prompt, "20% code quality")
	require.Contains(t, prompt, "syntax error that prevents it from running, the score MUST be 0")
	require.Contains(t, prompt, "unrelated to the assignment, the score MUST be 0")
	require.Contains(t, prompt, "FEEDBACK MODE: CONCEPT")
}
