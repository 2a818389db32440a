package application

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/phishguard/risk-scoring/internal/domain"
	"github.com/phishguard/risk-scoring/internal/domain/detection"
	"github.com/phishguard/risk-scoring/internal/domain/extraction"
	"github.com/phishguard/risk-scoring/internal/ports"
)

// AnalysisService orchestrates the analysis pipeline:
// decode -> extract canonical text -> score -> classify
//
// A service holds no per-request state, so one instance serves concurrent
// requests. The rule catalog inside a heuristic strategy is read-only.
type AnalysisService struct {
	primary detection.ScoringStrategy

	// Fallback is only used when the primary strategy fails with a delegate
	// failure. Without one, delegate failures propagate with no partial score.
	fallback detection.ScoringStrategy

	metrics *Metrics
}

// Option configures an AnalysisService
type Option func(*AnalysisService)

// WithFallback sets the strategy used when the primary delegate is unavailable or malformed
func WithFallback(strategy detection.ScoringStrategy) Option {
	return func(s *AnalysisService) {
		s.fallback = strategy
	}
}

// WithMetrics records pipeline outcomes
func WithMetrics(metrics *Metrics) Option {
	return func(s *AnalysisService) {
		s.metrics = metrics
	}
}

// NewAnalysisService creates a new analysis service with dependency injection
func NewAnalysisService(primary detection.ScoringStrategy, opts ...Option) *AnalysisService {
	s := &AnalysisService{primary: primary}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze runs the full pipeline on one input.
// Failures keep their taxonomy (see domain.FailureKindOf) and never yield a score.
func (s *AnalysisService) Analyze(ctx context.Context, in domain.RawInput) (domain.ClassifiedResult, error) {
	start := time.Now()
	result, err := s.analyze(ctx, in)
	s.metrics.observe(result, err, time.Since(start))
	return result, err
}

func (s *AnalysisService) analyze(ctx context.Context, in domain.RawInput) (domain.ClassifiedResult, error) {
	decoded, err := extraction.Decode(in)
	if err != nil {
		return domain.ClassifiedResult{}, fmt.Errorf("decode input: %w", err)
	}

	text, err := extraction.CanonicalTextOf(decoded)
	if err != nil {
		return domain.ClassifiedResult{}, fmt.Errorf("extract text: %w", err)
	}

	score, err := s.score(ctx, text)
	if err != nil {
		return domain.ClassifiedResult{}, fmt.Errorf("score text: %w", err)
	}

	result := domain.Classify(score)
	result.ID = uuid.New()
	result.Provenance = text.Provenance

	log.Printf("Analysis %s: %d chars from %s scored %d (%s) by %s",
		result.ID, len(text.Text), text.Provenance, result.Score, result.Category, result.Source)

	return result, nil
}

// score runs the primary strategy, falling back on delegate failures when configured.
// A canceled caller never triggers the fallback.
func (s *AnalysisService) score(ctx context.Context, text domain.CanonicalText) (domain.ScoreResult, error) {
	result, err := s.primary.Score(ctx, text)
	if err == nil {
		return result, nil
	}

	if s.fallback == nil || !domain.IsDelegateFailure(err) || ctx.Err() != nil {
		return domain.ScoreResult{}, err
	}

	log.Printf("Strategy %q failed (%v), falling back to %q", s.primary.Name(), err, s.fallback.Name())
	s.metrics.fallback()

	return s.fallback.Score(ctx, text)
}

// Report is the outcome of one submission in a batch
type Report struct {
	Submission domain.Submission
	Result     *domain.ClassifiedResult
	Err        error
}

// AnalyzeSource analyzes every submission of an input source
// Error handling strategy:
//   - Individual submission failures, including unreadable items, are recorded in their report and logged
//   - This ensures partial success: one unreadable message does not hide the others
//   - A source that cannot be read, or a canceled context, returns an error
func (s *AnalysisService) AnalyzeSource(ctx context.Context, source ports.InputSource) ([]Report, error) {
	submissions, err := source.Submissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read submissions: %w", err)
	}

	log.Printf("Analyzing %d submissions", len(submissions))

	reports := make([]Report, 0, len(submissions))
	flagged := 0
	for _, submission := range submissions {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		if submission.Err != nil {
			log.Printf("Failed to read %s: %v", submission.Name, submission.Err)
			s.metrics.failure(submission.Err)
			reports = append(reports, Report{Submission: submission, Err: submission.Err})
			continue
		}

		result, err := s.Analyze(ctx, submission.Input)
		if err != nil {
			log.Printf("Failed to analyze %s: %v", submission.Name, err)
			reports = append(reports, Report{Submission: submission, Err: err})
			continue
		}

		if result.Category == domain.CategoryDangerous {
			flagged++
		}
		reports = append(reports, Report{Submission: submission, Result: &result})
	}

	log.Printf("Analyzed %d submissions, %d dangerous", len(reports), flagged)
	return reports, nil
}
