package ports

import (
	"context"

	"github.com/phishguard/risk-scoring/internal/domain"
)

// InputSource defines the contract for fetching submissions to analyze in batch
type InputSource interface {
	// Submissions returns the inputs in source order.
	// A source that cannot be read at all returns an error; individual unreadable
	// items are returned as submissions so the pipeline reports them.
	Submissions(ctx context.Context) ([]domain.Submission, error)
}
