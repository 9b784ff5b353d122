package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/verbalia/qasmith/internal/llm"
	"github.com/verbalia/qasmith/internal/strategy"
)

const transformSystemPrompt = `You are an answer rewriting engine for customer support.

Your only task: given a user question, the original answer, and a selected handling strategy, produce the final answer text.

Ground rules:
1. Never change the factual meaning of the original answer.
2. Never add information the given material does not support.
3. Never leak data that was not provided.
4. Apply only the selected strategy.
5. The output must read naturally.
6. Never expose the internal strategy decision.

Strategy handling:

- direct
  No rewriting; output the original answer.

- clarification
  The question is incomplete or ambiguous and the original answer holds no clear advantage; ask a counter-question that pins down the missing detail.

- guidance
  The original answer works, but a richer form exists (image, video, document); open with a pointer to that richer form, then give the original answer.

Output constraints:

- Output only the final answer text.
- No strategy names, no explanations, no JSON or structured fields.
- At most three sentences, each at most 20 words (punctuation and file URLs excluded from the count).
- The output goes to the user verbatim.`

const transformUserPrompt = `User question:
%s

Original answer:
%s

Selected strategy:
%s

Rewrite the original answer accordingly.`

// LLMTransformer rewrites answers through a language model. One completion
// per item; output constraints are instructed, not enforced (the model's
// compliance is best-effort by design of the prompt contract).
type LLMTransformer struct {
	completer llm.Completer
}

// NewLLMTransformer creates an LLMTransformer backed by the given completer.
func NewLLMTransformer(c llm.Completer) *LLMTransformer {
	return &LLMTransformer{completer: c}
}

func (t *LLMTransformer) Transform(ctx context.Context, question, answer string, s strategy.Strategy) (string, error) {
	userPrompt := fmt.Sprintf(transformUserPrompt, question, answer, s)

	raw, err := t.completer.Complete(ctx, transformSystemPrompt, userPrompt)
	if err != nil {
		return "", &TransformError{Err: err}
	}

	out := strings.TrimSpace(raw)
	slog.Debug("answer transformed", "strategy", s, "chars", len(out))
	return out, nil
}
