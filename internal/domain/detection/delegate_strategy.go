package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/phishguard/risk-scoring/internal/domain"
	"github.com/phishguard/risk-scoring/internal/ports"
)

// DefaultDelegateTimeout bounds a delegate call when none is configured
const DefaultDelegateTimeout = 20 * time.Second

// DelegateStrategy scores text with an external classifier
//
// The classifier call is the only blocking step of the pipeline, so it always
// runs under a timeout derived from the caller's context. The classifier's
// answer is validated and normalized before it leaves this strategy.
type DelegateStrategy struct {
	client  ports.DelegateClassifier
	timeout time.Duration
}

// NewDelegateStrategy creates a delegate strategy; a non-positive timeout uses DefaultDelegateTimeout
func NewDelegateStrategy(client ports.DelegateClassifier, timeout time.Duration) *DelegateStrategy {
	if timeout <= 0 {
		timeout = DefaultDelegateTimeout
	}
	return &DelegateStrategy{client: client, timeout: timeout}
}

// Name returns the strategy name
func (s *DelegateStrategy) Name() string {
	return "Delegate (" + s.client.Name() + ")"
}

// Score sends the text to the classifier and normalizes its answer
func (s *DelegateStrategy) Score(ctx context.Context, text domain.CanonicalText) (domain.ScoreResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ScoreResult{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Classify(callCtx, text.Text)
	if err != nil {
		// Caller cancellation is not a delegate failure and must not trigger a fallback
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.ScoreResult{}, fmt.Errorf("%s: %w", s.client.Name(), ctxErr)
		}
		return domain.ScoreResult{}, fmt.Errorf("%s: %w: %w", s.client.Name(), domain.ErrDelegateUnavailable, err)
	}

	result, err := NormalizeDelegateResponse(raw)
	if err != nil {
		return domain.ScoreResult{}, fmt.Errorf("%s: %w", s.client.Name(), err)
	}
	return result, nil
}
