package strategy

import "context"

// Decider chooses a handling strategy for an answer relative to its question.
// Implementations may suspend on external calls and fail; decision faults are
// never swallowed here — the pipeline decides what a failed item means.
type Decider interface {
	Decide(ctx context.Context, question, answer string) (Strategy, error)
}

// RuleDecider is a placeholder capability slot for rule-based decisions.
// It carries its rule set but applies none of it yet: every decision returns
// the configured default.
type RuleDecider struct {
	Rules   []string
	Default Strategy
}

// NewRuleDecider creates a RuleDecider defaulting to Direct.
func NewRuleDecider(rules []string) *RuleDecider {
	return &RuleDecider{Rules: rules, Default: Direct}
}

func (d *RuleDecider) Decide(_ context.Context, _, _ string) (Strategy, error) {
	if d.Default == "" {
		return Direct, nil
	}
	return d.Default, nil
}

// ModelDecider is a placeholder capability slot for a statistical classifier.
// The contract is fixed; the decision logic is not mandated yet.
type ModelDecider struct {
	Default Strategy
}

func (d *ModelDecider) Decide(_ context.Context, _, _ string) (Strategy, error) {
	if d.Default == "" {
		return Direct, nil
	}
	return d.Default, nil
}
