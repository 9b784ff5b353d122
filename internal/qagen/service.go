package qagen

import "context"

// Service bundles the three generation capabilities. The staged loop over
// contexts lives in the pipeline executor; Service only owns the stages.
type Service struct {
	generator Generator
	filter    Filter
	post      PostProcessor
}

// NewService wires a Service from its capabilities.
func NewService(g Generator, f Filter, p PostProcessor) *Service {
	return &Service{generator: g, filter: f, post: p}
}

// Generate produces raw pairs from one context block.
func (s *Service) Generate(ctx context.Context, contextBlock string) ([]Pair, error) {
	return s.generator.Generate(ctx, contextBlock)
}

// Keep reports whether a generated pair survives filtering.
func (s *Service) Keep(ctx context.Context, p Pair) (bool, error) {
	return s.filter.Keep(ctx, p)
}

// PostProcess runs the whole-set pass over the surviving pairs.
func (s *Service) PostProcess(ctx context.Context, pairs []Pair) ([]Pair, error) {
	return s.post.Process(ctx, pairs)
}
