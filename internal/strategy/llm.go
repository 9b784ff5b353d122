package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/verbalia/qasmith/internal/llm"
)

const decisionSystemPrompt = `You are a decision engine for customer-support answers. You only decide which handling strategy applies — you never write the answer itself.

Given a user question and the original answer, choose exactly one strategy:

- clarification: the question is incomplete or ambiguous and the original answer holds no clear informational advantage; a clarifying counter-question should be asked instead.
- guidance: the original answer works, but a richer presentation exists (image, video, document); guide the user to it first, then give the original answer.
- direct: both question and answer are complete; the original answer can be returned as-is.

Judge in strict priority order: clarification, then guidance, then direct.

Respond with a JSON object only, no other output:
{"strategy": "<name>", "reason": "<one short sentence>"}`

const decisionUserPrompt = `User question:
%s

Original answer:
%s

Legal strategies: %s

Pick the single best strategy.`

// LLMDecider asks a language model which strategy applies. One completion
// per decision, no retries; parse and range faults propagate to the caller.
type LLMDecider struct {
	completer llm.Completer
}

// NewLLMDecider creates an LLMDecider backed by the given completer.
func NewLLMDecider(c llm.Completer) *LLMDecider {
	return &LLMDecider{completer: c}
}

func (d *LLMDecider) Decide(ctx context.Context, question, answer string) (Strategy, error) {
	names := make([]string, 0, len(Values()))
	for _, s := range Values() {
		names = append(names, string(s))
	}
	userPrompt := fmt.Sprintf(decisionUserPrompt, question, answer, strings.Join(names, ", "))

	raw, err := d.completer.Complete(ctx, decisionSystemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("strategy decision call: %w", err)
	}

	obj, err := llm.ExtractObject(raw)
	if err != nil {
		return "", &ParseError{Raw: raw, Err: err}
	}

	var decision struct {
		Strategy string `json:"strategy"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(obj), &decision); err != nil {
		return "", &ParseError{Raw: raw, Err: err}
	}

	chosen, err := Parse(decision.Strategy)
	if err != nil {
		return "", err
	}

	// The reason is diagnostic only — logged, never propagated.
	slog.Debug("strategy decided", "strategy", chosen, "reason", decision.Reason)
	return chosen, nil
}
