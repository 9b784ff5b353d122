package qagen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/verbalia/qasmith/internal/llm"
)

// Filter decides whether a generated pair survives into the result set.
type Filter interface {
	Keep(ctx context.Context, p Pair) (bool, error)
}

// RuleFilter drops pairs that are empty or too short to be useful.
type RuleFilter struct {
	MinQuestionLen int // runes; 0 means any non-empty question passes
	MinAnswerLen   int
}

func (f *RuleFilter) Keep(_ context.Context, p Pair) (bool, error) {
	if p.Question == "" || p.Answer == "" {
		return false, nil
	}
	if utf8.RuneCountInString(p.Question) < f.MinQuestionLen {
		return false, nil
	}
	if utf8.RuneCountInString(p.Answer) < f.MinAnswerLen {
		return false, nil
	}
	return true, nil
}

const filterSystemPrompt = `You rate the quality of a customer-support QA pair on a scale of 0.0 to 1.0.

A high-quality pair has a self-contained question and an answer that resolves it without referring to missing context.

Respond with only a JSON object: {"score": <float>}`

const filterUserPrompt = `Question: %s
Answer: %s

Rate this pair.`

// LLMFilter scores each pair through a language model and keeps pairs at or
// above the threshold. A parse failure keeps the pair rather than silently
// dropping data; a transport fault is a *FilterError.
type LLMFilter struct {
	completer llm.Completer
	threshold float64
}

// NewLLMFilter creates an LLMFilter with the given keep threshold.
func NewLLMFilter(c llm.Completer, threshold float64) *LLMFilter {
	return &LLMFilter{completer: c, threshold: threshold}
}

func (f *LLMFilter) Keep(ctx context.Context, p Pair) (bool, error) {
	raw, err := f.completer.Complete(ctx, filterSystemPrompt, fmt.Sprintf(filterUserPrompt, p.Question, p.Answer))
	if err != nil {
		return false, &FilterError{Err: err}
	}

	obj, err := llm.ExtractObject(raw)
	if err != nil {
		slog.Debug("filter: parse failed, keeping pair", "response", raw, "error", err)
		return true, nil
	}

	var scored struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(obj), &scored); err != nil {
		slog.Debug("filter: unmarshal failed, keeping pair", "response", raw, "error", err)
		return true, nil
	}

	return scored.Score >= f.threshold, nil
}
