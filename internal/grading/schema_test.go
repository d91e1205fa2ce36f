package grading

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectBuildsModeSchemas(t *testing.T) {
	cases := map[FeedbackMode][]string{
		ModeNone:    {},
		ModeHint:    {"hint"},
		ModeConcept: {"concept"},
		ModeAnswer:  {"correctedCode", "explanation", "logicError"},
	}

	for mode, extra := range cases {
		selection := Select(mode)
		require.Equal(t, mode, selection.Mode)
		require.NotEmpty(t, selection.Instruction)

		definition := selection.Schema.Definition
		require.Len(t, definition.Properties, len(baseRequired)+len(extra), "mode %s", mode)
		require.Equal(t, append(append([]string(nil), baseRequired...), extra...), definition.Required)
		require.Equal(t, false, definition.AdditionalProperties)
	}
}

func TestSelectIsDeterministic(t *testing.T) {
	first := Select(ModeAnswer)
	second := Select(ModeAnswer)
	require.Equal(t, first, second)
}

func TestSelectUnknownModeUsesHint(t *testing.T) {
	require.Equal(t, Select(ModeHint), Select(FeedbackMode("SOLUTION")))
}

func TestParseMode(t *testing.T) {
	mode, ok := ParseMode(" answer ")
	require.True(t, ok)
	require.Equal(t, ModeAnswer, mode)

	mode, ok = ParseMode("verbose")
	require.False(t, ok)
	require.Equal(t, ModeHint, mode)
}

func TestDecodeBaseReadsAnyVariant(t *testing.T) {
	base, err := DecodeBase([]byte(`{"score": 4, "feedback": "loop ends early", "mistakeTags": ["loop"], "syntaxErrorFound": false, "codeQuality": [], "hint": "check range"}`))
	require.NoError(t, err)
	require.Equal(t, 4.0, base.Score)
	require.Equal(t, []string{"loop"}, base.MistakeTags)

	empty, err := DecodeBase(nil)
	require.NoError(t, err)
	require.Zero(t, empty.Score)
}

func TestClampScore(t *testing.T) {
	require.Equal(t, 10.0, ClampScore(15, 10))
	require.Equal(t, 7.5, ClampScore(7.5, 10))
	require.Equal(t, 0.0, ClampScore(-1, 10))
	require.Equal(t, 0.0, ClampScore(3, 0))
}
