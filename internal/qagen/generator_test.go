package qagen

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return f.response, f.err
}

func TestLLMGenerator_Generate(t *testing.T) {
	fake := &fakeCompleter{response: `[{"question":"How do I reset?","answer":"Press the button."},{"question":"Is it free?","answer":"Yes."}]`}
	g := NewLLMGenerator(fake)

	pairs, err := g.Generate(context.Background(), "1. user: how to reset\n2. agent: press the button")
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "How do I reset?", pairs[0].Question)
	assert.Equal(t, "Yes.", pairs[1].Answer)
}

func TestLLMGenerator_FencedResponse(t *testing.T) {
	fake := &fakeCompleter{response: "```json\n[{\"question\":\"q\",\"answer\":\"a\"}]\n```"}
	g := NewLLMGenerator(fake)

	pairs, err := g.Generate(context.Background(), "ctx")
	require.NoError(t, err)
	assert.Len(t, pairs, 1)
}

func TestLLMGenerator_EmptyArray(t *testing.T) {
	fake := &fakeCompleter{response: `[]`}
	g := NewLLMGenerator(fake)

	pairs, err := g.Generate(context.Background(), "ctx")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestLLMGenerator_TransportFault(t *testing.T) {
	fake := &fakeCompleter{err: fmt.Errorf("upstream down")}
	g := NewLLMGenerator(fake)

	_, err := g.Generate(context.Background(), "ctx")
	var genErr *GenerateError
	require.True(t, errors.As(err, &genErr), "want *GenerateError, got %v", err)
}

func TestLLMGenerator_MalformedResponse(t *testing.T) {
	fake := &fakeCompleter{response: "no array here"}
	g := NewLLMGenerator(fake)

	_, err := g.Generate(context.Background(), "ctx")
	require.Error(t, err)
}

func TestRuleFilter(t *testing.T) {
	f := &RuleFilter{MinQuestionLen: 3, MinAnswerLen: 2}

	tests := []struct {
		name string
		pair Pair
		want bool
	}{
		{"keeps valid pair", Pair{Question: "How do I reset?", Answer: "Press it."}, true},
		{"drops empty question", Pair{Answer: "a"}, false},
		{"drops empty answer", Pair{Question: "q?"}, false},
		{"drops short question", Pair{Question: "q?", Answer: "long enough"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Keep(context.Background(), tt.pair)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMFilter_Threshold(t *testing.T) {
	keep, err := NewLLMFilter(&fakeCompleter{response: `{"score": 0.9}`}, 0.5).
		Keep(context.Background(), Pair{Question: "q", Answer: "a"})
	require.NoError(t, err)
	assert.True(t, keep)

	keep, err = NewLLMFilter(&fakeCompleter{response: `{"score": 0.2}`}, 0.5).
		Keep(context.Background(), Pair{Question: "q", Answer: "a"})
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestLLMFilter_ParseFailureKeepsPair(t *testing.T) {
	keep, err := NewLLMFilter(&fakeCompleter{response: "garbage"}, 0.5).
		Keep(context.Background(), Pair{Question: "q", Answer: "a"})
	require.NoError(t, err)
	assert.True(t, keep)
}

func TestLLMFilter_TransportFault(t *testing.T) {
	_, err := NewLLMFilter(&fakeCompleter{err: fmt.Errorf("timeout")}, 0.5).
		Keep(context.Background(), Pair{Question: "q", Answer: "a"})
	var filterErr *FilterError
	require.True(t, errors.As(err, &filterErr), "want *FilterError, got %v", err)
}

func TestDedupePostProcessor(t *testing.T) {
	pairs := []Pair{
		{Question: "How do I reset?", Answer: "first"},
		{Question: "  how DO i reset?  ", Answer: "second"},
		{Question: "Is it free?", Answer: "yes"},
	}

	out, err := DedupePostProcessor{}.Process(context.Background(), pairs)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Answer, "first occurrence wins")
	assert.Equal(t, "Is it free?", out[1].Question)
}
