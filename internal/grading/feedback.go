package grading

import (
	"encoding/json"
	"fmt"
	"math"
)

// SystemErrorTag marks feedback produced without a successful AI response.
const SystemErrorTag = "SystemError"

// CodeQuality is one code-quality assessment.
type CodeQuality struct {
	Aspect      string `json:"aspect"`
	Description string `json:"description"`
	Appropriate bool   `json:"appropriate"`
}

// Base holds the fields present in every feedback variant.
type Base struct {
	Score            float64       `json:"score"`
	Feedback         string        `json:"feedback"`
	MistakeTags      []string      `json:"mistakeTags"`
	SyntaxErrorFound bool          `json:"syntaxErrorFound"`
	CodeQuality      []CodeQuality `json:"codeQuality"`
}

// Feedback is the closed set of payload variants. Each variant marshals to the
// base fields plus its own mode fields and nothing else.
type Feedback interface {
	Mode() FeedbackMode
	Common() *Base
}

// NoneFeedback carries the base fields only.
type NoneFeedback struct {
	Base
}

// HintFeedback adds a short hint about the logic.
type HintFeedback struct {
	Base
	Hint string `json:"hint"`
}

// ConceptFeedback adds a theory explanation.
type ConceptFeedback struct {
	Base
	Concept string `json:"concept"`
}

// AnswerFeedback adds the full solution.
type AnswerFeedback struct {
	Base
	LogicError    string `json:"logicError"`
	CorrectedCode string `json:"correctedCode"`
	Explanation   string `json:"explanation"`
}

func (f *NoneFeedback) Mode() FeedbackMode    { return ModeNone }
func (f *NoneFeedback) Common() *Base         { return &f.Base }
func (f *HintFeedback) Mode() FeedbackMode    { return ModeHint }
func (f *HintFeedback) Common() *Base         { return &f.Base }
func (f *ConceptFeedback) Mode() FeedbackMode { return ModeConcept }
func (f *ConceptFeedback) Common() *Base      { return &f.Base }
func (f *AnswerFeedback) Mode() FeedbackMode  { return ModeAnswer }
func (f *AnswerFeedback) Common() *Base       { return &f.Base }

// NewFeedback returns an empty payload of the variant matching mode.
// Unknown modes produce the hint variant.
func NewFeedback(mode FeedbackMode) Feedback {
	switch mode {
	case ModeNone:
		return &NoneFeedback{}
	case ModeConcept:
		return &ConceptFeedback{}
	case ModeAnswer:
		return &AnswerFeedback{}
	default:
		return &HintFeedback{}
	}
}

// DecodeFeedback parses raw into the variant for mode.
func DecodeFeedback(mode FeedbackMode, raw []byte) (Feedback, error) {
	feedback := NewFeedback(mode)
	if err := json.Unmarshal(raw, feedback); err != nil {
		return nil, fmt.Errorf("decode %s feedback: %w", feedback.Mode(), err)
	}
	normalize(feedback.Common())
	return feedback, nil
}

// DecodeBase extracts only the shared fields from a stored payload of any variant.
func DecodeBase(raw []byte) (Base, error) {
	var base Base
	if len(raw) == 0 {
		return base, nil
	}
	if err := json.Unmarshal(raw, &base); err != nil {
		return Base{}, fmt.Errorf("decode feedback: %w", err)
	}
	normalize(&base)
	return base, nil
}

// Fallback is the payload returned when grading cannot reach the AI provider.
func Fallback(message string) *NoneFeedback {
	return &NoneFeedback{Base: Base{
		Score:       0,
		Feedback:    message,
		MistakeTags: []string{SystemErrorTag},
		CodeQuality: []CodeQuality{},
	}}
}

// ClampScore bounds score to [0, maxScore].
func ClampScore(score, maxScore float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if maxScore < 0 {
		maxScore = 0
	}
	return math.Min(score, maxScore)
}

func normalize(base *Base) {
	if base.MistakeTags == nil {
		base.MistakeTags = []string{}
	}
	if base.CodeQuality == nil {
		base.CodeQuality = []CodeQuality{}
	}
}
