package enhance

import (
	"context"
	"fmt"

	"github.com/verbalia/qasmith/internal/strategy"
)

// Item is one question/answer pair submitted for enhancement.
type Item struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Service runs the two-stage enhancement pipeline on a single item:
// decide a strategy, then transform the answer under it.
type Service struct {
	decider     strategy.Decider
	transformer Transformer
}

// NewService wires a Service from its two capabilities.
func NewService(d strategy.Decider, t Transformer) *Service {
	return &Service{decider: d, transformer: t}
}

// Enhance decides the strategy for the item and applies the transform.
// Faults from either stage propagate unwrapped in type — callers can still
// errors.As them — with stage context attached.
func (s *Service) Enhance(ctx context.Context, question, answer string) (string, error) {
	chosen, err := s.decider.Decide(ctx, question, answer)
	if err != nil {
		return "", fmt.Errorf("deciding strategy: %w", err)
	}

	out, err := s.transformer.Transform(ctx, question, answer, chosen)
	if err != nil {
		return "", fmt.Errorf("transforming answer: %w", err)
	}
	return out, nil
}
