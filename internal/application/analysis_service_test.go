package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/phishguard/risk-scoring/internal/adapters/sources"
	"github.com/phishguard/risk-scoring/internal/domain"
	"github.com/phishguard/risk-scoring/internal/domain/detection"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStrategy returns a fixed result or error and counts calls
type stubStrategy struct {
	name   string
	result domain.ScoreResult
	err    error
	calls  int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Score(ctx context.Context, text domain.CanonicalText) (domain.ScoreResult, error) {
	s.calls++
	return s.result, s.err
}

type staticSource struct {
	submissions []domain.Submission
	err         error
}

func (s staticSource) Submissions(ctx context.Context) ([]domain.Submission, error) {
	return s.submissions, s.err
}

func TestAnalysisService_Analyze_Heuristic(t *testing.T) {
	service := NewAnalysisService(detection.NewHeuristicStrategy(nil))

	result, err := service.Analyze(context.Background(),
		domain.TextInput("Your account will be suspended, click http://bit.ly/xyz immediately"))

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, result.ID)
	assert.Equal(t, 50, result.Score)
	assert.Equal(t, domain.CategoryCaution, result.Category)
	assert.Equal(t, domain.SourceHeuristic, result.Source)
	assert.Equal(t, domain.ProvenanceRawString, result.Provenance)
	assert.Len(t, result.Rationales, 3)
}

func TestAnalysisService_Analyze_MailFile(t *testing.T) {
	service := NewAnalysisService(detection.NewHeuristicStrategy(nil))
	raw := "Subject: Team\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=b1\r\n" +
		"\r\n" +
		"--b1\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		"<a href=\"http://evil.example\">URGENT</a>\r\n" +
		"--b1\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"Hello, meeting at 3pm\r\n" +
		"--b1--\r\n"

	input, err := domain.FromSource(domain.SourceMailFile, []byte(raw))
	require.NoError(t, err)

	result, err := service.Analyze(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, 0, result.Score, "plain text part is scored, not the HTML")
	assert.Equal(t, domain.CategorySafe, result.Category)
	assert.Equal(t, domain.ProvenancePlainTextPart, result.Provenance)
}

func TestAnalysisService_Analyze_Failures(t *testing.T) {
	service := NewAnalysisService(detection.NewHeuristicStrategy(nil))

	tests := []struct {
		name     string
		input    domain.RawInput
		expected domain.FailureKind
	}{
		{name: "Empty payload", input: domain.BytesInput(domain.InputPlain, nil), expected: domain.FailureEmptyInput},
		{name: "Unknown kind", input: domain.BytesInput("fax", []byte("x")), expected: domain.FailureUnsupportedInputKind},
		{
			name: "Image-only mail",
			input: domain.BytesInput(domain.InputStructuredMail, []byte(
				"Content-Type: multipart/mixed; boundary=b\r\n\r\n"+
					"--b\r\nContent-Type: image/png\r\n\r\nPNGDATA\r\n--b--\r\n")),
			expected: domain.FailureNoReadableContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := service.Analyze(context.Background(), tt.input)

			require.Error(t, err)
			assert.Equal(t, tt.expected, domain.FailureKindOf(err))
			assert.Equal(t, domain.ClassifiedResult{}, result, "no result on failure")
		})
	}
}

func TestAnalysisService_DelegateFailure_NoFallback(t *testing.T) {
	delegate := &stubStrategy{name: "delegate", err: fmt.Errorf("gemini: %w", domain.ErrDelegateUnavailable)}
	service := NewAnalysisService(delegate)

	_, err := service.Analyze(context.Background(), domain.TextInput("urgent"))

	assert.ErrorIs(t, err, domain.ErrDelegateUnavailable)
}

func TestAnalysisService_DelegateFailure_Fallback(t *testing.T) {
	delegate := &stubStrategy{name: "delegate", err: fmt.Errorf("gemini: %w", domain.ErrDelegateMalformedResponse)}
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	service := NewAnalysisService(delegate,
		WithFallback(detection.NewHeuristicStrategy(nil)),
		WithMetrics(metrics),
	)

	result, err := service.Analyze(context.Background(), domain.TextInput("urgent: reset your password"))

	require.NoError(t, err)
	assert.Equal(t, domain.SourceHeuristic, result.Source)
	assert.Equal(t, 30, result.Score)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.fallbacks))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.analyses.WithLabelValues("Safe", "heuristic")))
}

func TestAnalysisService_NonDelegateErrorNotMasked(t *testing.T) {
	primary := &stubStrategy{name: "broken", err: errors.New("boom")}
	fallback := &stubStrategy{name: "fallback"}
	service := NewAnalysisService(primary, WithFallback(fallback))

	_, err := service.Analyze(context.Background(), domain.TextInput("hello"))

	assert.Error(t, err)
	assert.Equal(t, 0, fallback.calls)
}

func TestAnalysisService_CanceledCallerSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	primary := &stubStrategy{name: "delegate", err: fmt.Errorf("x: %w", domain.ErrDelegateUnavailable)}
	fallback := &stubStrategy{name: "fallback"}
	service := NewAnalysisService(primary, WithFallback(fallback))

	_, err := service.Analyze(ctx, domain.TextInput("hello"))

	assert.Error(t, err)
	assert.Equal(t, 0, fallback.calls)
}

func TestAnalysisService_DelegateResultClassifiedLikeHeuristic(t *testing.T) {
	delegate := &stubStrategy{name: "delegate", result: domain.ScoreResult{
		RawScore: 90, Rationales: []string{"Spoofed brand"}, Source: domain.SourceDelegate,
	}}
	service := NewAnalysisService(delegate)

	result, err := service.Analyze(context.Background(), domain.TextInput("hello"))

	require.NoError(t, err)
	assert.Equal(t, 90, result.Score)
	assert.Equal(t, domain.CategoryDangerous, result.Category)
	assert.Equal(t, domain.SourceDelegate, result.Source)
	assert.Equal(t, []string{"Spoofed brand"}, result.Rationales)
}

func TestAnalysisService_AnalyzeSource(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	service := NewAnalysisService(detection.NewHeuristicStrategy(nil), WithMetrics(metrics))
	source := staticSource{submissions: []domain.Submission{
		{ID: uuid.New(), Name: "ok", Input: domain.TextInput("Hello, meeting at 3pm")},
		{ID: uuid.New(), Name: "empty", Input: domain.BytesInput(domain.InputPlain, nil)},
		{ID: uuid.New(), Name: "scam", Input: domain.TextInput("URGENT wire transfer, buy a gift card, open invoice.exe")},
	}}

	reports, err := service.AnalyzeSource(context.Background(), source)

	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.NotNil(t, reports[0].Result)
	assert.ErrorIs(t, reports[1].Err, domain.ErrEmptyInput)
	assert.Nil(t, reports[1].Result)
	require.NotNil(t, reports[2].Result)
	assert.Equal(t, domain.CategoryDangerous, reports[2].Result.Category)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("empty_input")))
}

func TestAnalysisService_AnalyzeSource_SourceError(t *testing.T) {
	service := NewAnalysisService(detection.NewHeuristicStrategy(nil))

	_, err := service.AnalyzeSource(context.Background(), staticSource{err: errors.New("disk gone")})

	assert.Error(t, err)
}

func TestAnalysisService_AnalyzeSource_UnsupportedFileDoesNotHaltBatch(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "a.txt")
	bad := filepath.Join(dir, "b.pdf")
	require.NoError(t, os.WriteFile(good, []byte("Your account will be suspended, click http://bit.ly/xyz immediately"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("%PDF-1.4"), 0o600))

	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	service := NewAnalysisService(detection.NewHeuristicStrategy(nil), WithMetrics(metrics))

	reports, err := service.AnalyzeSource(context.Background(), sources.NewFileSource(good, bad))

	require.NoError(t, err)
	require.Len(t, reports, 2)
	require.NotNil(t, reports[0].Result)
	assert.Equal(t, 50, reports[0].Result.Score)
	assert.Nil(t, reports[1].Result)
	assert.Equal(t, domain.FailureUnsupportedInputKind, domain.FailureKindOf(reports[1].Err))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("unsupported_input_kind")))
}
