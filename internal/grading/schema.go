package grading

import (
	"sort"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/nattapong2005/codementorai/pkg/ai"
)

// Selection is the output schema and prompt fragment for one feedback mode.
type Selection struct {
	Mode        FeedbackMode
	Schema      ai.Schema
	Instruction string
}

var baseRequired = []string{"score", "feedback", "mistakeTags", "syntaxErrorFound", "codeQuality"}

const (
	noneInstruction = `FEEDBACK MODE: NONE
- Set "feedback" to an empty string "". Do not explain anything to the student.
- Only fill in the score, mistake tags, the syntax error flag and the code quality list.`

	hintInstruction = `FEEDBACK MODE: HINT
- "feedback": a short summary of how the submission performed.
- "hint": one or two sentences nudging the student toward the faulty logic.
- The hint must NOT reveal the answer and must NOT contain code.`

	conceptInstruction = `FEEDBACK MODE: CONCEPT
- "feedback": a short summary of how the submission performed.
- "concept": explain the underlying theory or programming concept the student needs, in 1-2 sentences.
- Do NOT write the solution.`

	answerInstruction = `FEEDBACK MODE: ANSWER
- "feedback": a short summary of how the submission performed.
- "logicError": describe exactly which logic is wrong (empty string if none).
- "correctedCode": a complete corrected version of the student's code.
- "explanation": a detailed step-by-step explanation of the fix.`
)

// Select maps a feedback mode to its output schema and instruction fragment.
// Modes outside the closed set use the HINT selection.
func Select(mode FeedbackMode) Selection {
	switch mode {
	case ModeNone:
		return Selection{
			Mode:        ModeNone,
			Schema:      feedbackSchema("feedback_none", nil),
			Instruction: noneInstruction,
		}
	case ModeHint:
		return Selection{
			Mode: ModeHint,
			Schema: feedbackSchema("feedback_hint", map[string]jsonschema.Definition{
				"hint": {Type: jsonschema.String, Description: "Short hint that does not spoil the answer"},
			}),
			Instruction: hintInstruction,
		}
	case ModeConcept:
		return Selection{
			Mode: ModeConcept,
			Schema: feedbackSchema("feedback_concept", map[string]jsonschema.Definition{
				"concept": {Type: jsonschema.String, Description: "1-2 sentence explanation of the relevant concept"},
			}),
			Instruction: conceptInstruction,
		}
	case ModeAnswer:
		return Selection{
			Mode: ModeAnswer,
			Schema: feedbackSchema("feedback_answer", map[string]jsonschema.Definition{
				"logicError":    {Type: jsonschema.String, Description: "The logic error found in the code"},
				"correctedCode": {Type: jsonschema.String, Description: "Corrected version of the code"},
				"explanation":   {Type: jsonschema.String, Description: "Detailed explanation of the correction"},
			}),
			Instruction: answerInstruction,
		}
	default:
		return Select(ModeHint)
	}
}

func feedbackSchema(name string, extra map[string]jsonschema.Definition) ai.Schema {
	properties := map[string]jsonschema.Definition{
		"score":    {Type: jsonschema.Number, Description: "Score between 0 and the maximum score"},
		"feedback": {Type: jsonschema.String, Description: "Feedback for the student"},
		"mistakeTags": {
			Type:        jsonschema.Array,
			Description: "Short tags naming the kinds of mistakes found",
			Items:       &jsonschema.Definition{Type: jsonschema.String},
		},
		"syntaxErrorFound": {Type: jsonschema.Boolean, Description: "True when a syntax error prevents the code from running"},
		"codeQuality": {
			Type:        jsonschema.Array,
			Description: "Code quality assessments",
			Items: &jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"aspect":      {Type: jsonschema.String, Description: "Quality dimension, e.g. naming or structure"},
					"description": {Type: jsonschema.String},
					"appropriate": {Type: jsonschema.Boolean},
				},
				Required:             []string{"aspect", "description", "appropriate"},
				AdditionalProperties: false,
			},
		},
	}

	keys := make([]string, 0, len(extra))
	for key, definition := range extra {
		properties[key] = definition
		keys = append(keys, key)
	}
	sort.Strings(keys)
	required := append(append([]string(nil), baseRequired...), keys...)

	return ai.Schema{
		Name:        name,
		Description: "Grading result for a student code submission",
		Definition: jsonschema.Definition{
			Type:                 jsonschema.Object,
			Properties:           properties,
			Required:             required,
			AdditionalProperties: false,
		},
	}
}
