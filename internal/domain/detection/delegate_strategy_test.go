package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phishguard/risk-scoring/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClassifier returns a canned answer, or blocks until the context ends
type fakeClassifier struct {
	answer   string
	err      error
	block    bool
	received string
}

func (f *fakeClassifier) Name() string { return "fake" }

func (f *fakeClassifier) Classify(ctx context.Context, text string) (string, error) {
	f.received = text
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

var sampleText = domain.CanonicalText{Text: "Please verify your account", Provenance: domain.ProvenanceRawString}

func TestDelegateStrategy_Score(t *testing.T) {
	client := &fakeClassifier{answer: `{"explanation": ["Asks to verify account"], "score": 85}`}
	strategy := NewDelegateStrategy(client, time.Second)

	result, err := strategy.Score(context.Background(), sampleText)

	require.NoError(t, err)
	assert.Equal(t, sampleText.Text, client.received)
	assert.Equal(t, 85, result.RawScore)
	assert.Equal(t, domain.SourceDelegate, result.Source)
	assert.Equal(t, domain.CategoryDangerous, domain.Classify(result).Category)
	assert.Contains(t, strategy.Name(), "fake")
}

func TestDelegateStrategy_TransportFailure(t *testing.T) {
	strategy := NewDelegateStrategy(&fakeClassifier{err: errors.New("401 unauthorized")}, time.Second)

	_, err := strategy.Score(context.Background(), sampleText)

	assert.ErrorIs(t, err, domain.ErrDelegateUnavailable)
	assert.Equal(t, domain.FailureDelegateUnavailable, domain.FailureKindOf(err))
}

func TestDelegateStrategy_MalformedAnswer(t *testing.T) {
	strategy := NewDelegateStrategy(&fakeClassifier{answer: `{"explanation": ["x"]}`}, time.Second)

	result, err := strategy.Score(context.Background(), sampleText)

	assert.ErrorIs(t, err, domain.ErrDelegateMalformedResponse)
	assert.Equal(t, domain.ScoreResult{}, result)
}

func TestDelegateStrategy_Timeout(t *testing.T) {
	strategy := NewDelegateStrategy(&fakeClassifier{block: true}, 20*time.Millisecond)

	start := time.Now()
	_, err := strategy.Score(context.Background(), sampleText)

	assert.ErrorIs(t, err, domain.ErrDelegateUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDelegateStrategy_CallerCancellation(t *testing.T) {
	strategy := NewDelegateStrategy(&fakeClassifier{block: true}, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := strategy.Score(ctx, sampleText)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrDelegateUnavailable)
}

func TestDelegateStrategy_AlreadyCanceled(t *testing.T) {
	client := &fakeClassifier{answer: `{"explanation": [], "score": 1}`}
	strategy := NewDelegateStrategy(client, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := strategy.Score(ctx, sampleText)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.received, "no call once canceled")
}
