package pipeline

import (
	"context"
	"fmt"

	"github.com/verbalia/qasmith/internal/enhance"
)

// EnhancementResult aggregates one enhancement batch, order-preserving:
// EnhancedAnswers[i] corresponds to the i-th submitted item.
type EnhancementResult struct {
	Total           int      `json:"total"`
	EnhancedAnswers []string `json:"enhanced_answers"`
}

// RunEnhancement drives a batch through decide→transform, strictly
// sequentially. A failure on any item aborts the whole batch — no partial
// result is returned. This is deliberate: the caller either gets every
// item enhanced or a single fault naming the item that broke.
//
// onProgress (may be nil) receives floor((done/total)*100) after each item,
// only on strict increase and only below 100 — the terminal update owns
// the final 100.
func RunEnhancement(ctx context.Context, svc *enhance.Service, items []enhance.Item, onProgress func(pct int)) (EnhancementResult, error) {
	total := len(items)
	answers := make([]string, 0, total)

	last := 0
	for i, item := range items {
		out, err := svc.Enhance(ctx, item.Question, item.Answer)
		if err != nil {
			return EnhancementResult{}, fmt.Errorf("item %d: %w", i, err)
		}
		answers = append(answers, out)

		if pct := (i + 1) * 100 / total; pct > last {
			last = pct
			if onProgress != nil && pct < 100 {
				onProgress(pct)
			}
		}
	}

	return EnhancementResult{Total: total, EnhancedAnswers: answers}, nil
}
