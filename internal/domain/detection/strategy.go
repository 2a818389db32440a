package detection

import (
	"context"

	"github.com/phishguard/risk-scoring/internal/domain"
)

// ScoringStrategy defines the interface that every scorer must implement
//
// This follows the Strategy pattern: the rule engine and any delegate classifier
// (e.g. a hosted language model) are interchangeable, so the pipeline can swap
// them without touching extraction or classification.
type ScoringStrategy interface {
	// Score rates canonical text and returns a raw score with its rationales.
	// Delegate strategies normalize their external answer into the same shape.
	Score(ctx context.Context, text domain.CanonicalText) (domain.ScoreResult, error)

	// Name returns the human-readable name of this strategy
	Name() string
}
