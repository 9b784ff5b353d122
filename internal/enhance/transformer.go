package enhance

import (
	"context"
	"fmt"

	"github.com/verbalia/qasmith/internal/strategy"
)

// Transformer rewrites an answer according to the chosen strategy.
type Transformer interface {
	Transform(ctx context.Context, question, answer string, s strategy.Strategy) (string, error)
}

// RuleTransformer is a placeholder capability slot: it returns the answer
// unchanged regardless of strategy. Valid, not required to honor strategy
// semantics.
type RuleTransformer struct {
	Rules []string
}

// NewRuleTransformer creates an identity RuleTransformer.
func NewRuleTransformer(rules []string) *RuleTransformer {
	return &RuleTransformer{Rules: rules}
}

func (t *RuleTransformer) Transform(_ context.Context, _, answer string, _ strategy.Strategy) (string, error) {
	return answer, nil
}

// TransformError wraps a transport fault from the transform completion call.
type TransformError struct {
	Err error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform call: %v", e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }
