package qagen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/verbalia/qasmith/internal/llm"
)

const generateSystemPrompt = `You are a QA dataset builder for customer support.

Given a numbered transcript of a support conversation, extract standalone question/answer pairs a knowledge base could serve directly.

Rules:
1. Each question must be self-contained — no pronouns pointing back into the transcript.
2. Each answer must be supported by the transcript; never invent facts.
3. Skip greetings, small talk, and unresolved questions.
4. Zero pairs is a valid result for an uninformative conversation.

Respond with a JSON array only, no other output:
[{"question": "...", "answer": "..."}, ...]`

const generateUserPrompt = `Conversation transcript:
%s

Extract the question/answer pairs.`

// Generator produces zero or more raw QA pairs from one context block.
type Generator interface {
	Generate(ctx context.Context, contextBlock string) ([]Pair, error)
}

// LLMGenerator extracts QA pairs through a language model, one completion
// per context block.
type LLMGenerator struct {
	completer llm.Completer
}

// NewLLMGenerator creates an LLMGenerator backed by the given completer.
func NewLLMGenerator(c llm.Completer) *LLMGenerator {
	return &LLMGenerator{completer: c}
}

func (g *LLMGenerator) Generate(ctx context.Context, contextBlock string) ([]Pair, error) {
	raw, err := g.completer.Complete(ctx, generateSystemPrompt, fmt.Sprintf(generateUserPrompt, contextBlock))
	if err != nil {
		return nil, &GenerateError{Err: err}
	}

	arr, err := llm.ExtractArray(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing generated pairs from %q: %w", raw, err)
	}

	var pairs []Pair
	if err := json.Unmarshal([]byte(arr), &pairs); err != nil {
		return nil, fmt.Errorf("unmarshaling generated pairs: %w", err)
	}

	slog.Debug("pairs generated", "count", len(pairs))
	return pairs, nil
}
