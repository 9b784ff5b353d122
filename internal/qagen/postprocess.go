package qagen

import (
	"context"
	"strings"
)

// PostProcessor runs once over the full surviving set, not per pair.
type PostProcessor interface {
	Process(ctx context.Context, pairs []Pair) ([]Pair, error)
}

// DedupePostProcessor drops pairs whose normalized question was already
// seen, keeping the first occurrence.
type DedupePostProcessor struct{}

func (DedupePostProcessor) Process(_ context.Context, pairs []Pair) ([]Pair, error) {
	seen := make(map[string]struct{}, len(pairs))
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		key := normalizeQuestion(p.Question)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// normalizeQuestion lowercases and collapses whitespace so that trivial
// phrasing differences dedupe together.
func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
