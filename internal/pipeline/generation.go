package pipeline

import (
	"context"
	"fmt"

	"github.com/verbalia/qasmith/internal/qagen"
)

// RunGeneration drives context blocks through generate→filter, one block
// per iteration, then a single post-process pass over the full surviving
// set. Metadata is attached to every pair after post-processing, so the
// final set carries identical provenance.
//
// Progress is per context, same monotone rule as RunEnhancement; the
// post-process pass reports no intermediate progress. Any stage fault
// aborts the whole run — no partial QA set is surfaced.
func RunGeneration(ctx context.Context, svc *qagen.Service, contexts []string, meta map[string]any, onProgress func(pct int)) (qagen.Result, error) {
	total := len(contexts)
	generated := 0
	var filtered []qagen.Pair

	last := 0
	for i, block := range contexts {
		pairs, err := svc.Generate(ctx, block)
		if err != nil {
			return qagen.Result{}, fmt.Errorf("context %d: %w", i, err)
		}
		generated += len(pairs)

		for _, p := range pairs {
			keep, err := svc.Keep(ctx, p)
			if err != nil {
				return qagen.Result{}, fmt.Errorf("filtering pair from context %d: %w", i, err)
			}
			if keep {
				filtered = append(filtered, p)
			}
		}

		if pct := (i + 1) * 100 / total; pct > last {
			last = pct
			if onProgress != nil && pct < 100 {
				onProgress(pct)
			}
		}
	}

	post, err := svc.PostProcess(ctx, filtered)
	if err != nil {
		return qagen.Result{}, fmt.Errorf("post-processing: %w", err)
	}

	for i := range post {
		post[i].Metadata = meta
	}

	return qagen.Result{
		GeneratedCount:     generated,
		FilteredCount:      len(filtered),
		PostProcessedCount: len(post),
		Total:              len(post),
		QAs:                post,
	}, nil
}
