package strategy

import "strings"

// Strategy is the handling mode chosen for an answer relative to its question.
type Strategy string

const (
	// Direct: the answer is complete, return it as-is.
	Direct Strategy = "direct"
	// Clarification: the question is ambiguous or incomplete and the answer
	// holds no clear advantage; ask a clarifying question instead.
	Clarification Strategy = "clarification"
	// Guidance: the answer is usable but a richer presentation exists
	// (image, video); prepend guidance before the answer.
	Guidance Strategy = "guidance"
)

// Values returns every legal strategy in decision-priority order:
// clarification outranks guidance outranks direct when several apply.
func Values() []Strategy {
	return []Strategy{Clarification, Guidance, Direct}
}

// Parse maps a raw strategy name onto the enumeration, case-insensitively.
// Unknown values yield an *UnknownStrategyError.
func Parse(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case Direct:
		return Direct, nil
	case Clarification:
		return Clarification, nil
	case Guidance:
		return Guidance, nil
	default:
		return "", &UnknownStrategyError{Value: s}
	}
}
