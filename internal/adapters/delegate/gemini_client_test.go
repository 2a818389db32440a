package delegate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phishguard/risk-scoring/internal/domain"
	"github.com/phishguard/risk-scoring/internal/domain/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func geminiServer(t *testing.T, status int, body string) (*httptest.Server, *geminiRequest) {
	t.Helper()
	captured := &geminiRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(captured))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func TestGeminiClient_Classify(t *testing.T) {
	server, captured := geminiServer(t, http.StatusOK,
		`{"candidates": [{"content": {"parts": [{"text": "{\"explanation\": [\"Fake bank\"], \"score\": 91}"}]}}]}`)
	client := NewGeminiClient("secret", "test-model", server.URL, server.Client())

	answer, err := client.Classify(context.Background(), "Your account will be suspended")

	require.NoError(t, err)
	assert.JSONEq(t, `{"explanation": ["Fake bank"], "score": 91}`, answer)
	require.Len(t, captured.Contents, 1)
	assert.Contains(t, captured.Contents[0].Parts[0].Text, "Your account will be suspended")
	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
}

func TestGeminiClient_HTTPError(t *testing.T) {
	server, _ := geminiServer(t, http.StatusUnauthorized, `{"error": {"message": "API key not valid"}}`)
	client := NewGeminiClient("secret", "test-model", server.URL, server.Client())

	_, err := client.Classify(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestGeminiClient_NoCandidates(t *testing.T) {
	server, _ := geminiServer(t, http.StatusOK, `{"candidates": []}`)
	client := NewGeminiClient("secret", "test-model", server.URL, server.Client())

	_, err := client.Classify(context.Background(), "hello")

	assert.ErrorIs(t, err, domain.ErrDelegateMalformedResponse)
}

func TestGeminiClient_MissingAPIKey(t *testing.T) {
	client := NewGeminiClient("", "", "", nil)

	_, err := client.Classify(context.Background(), "hello")

	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGeminiClient_WithDelegateStrategy(t *testing.T) {
	server, _ := geminiServer(t, http.StatusOK,
		"{\"candidates\": [{\"content\": {\"parts\": [{\"text\": \"```json\\n{\\\"explanation\\\": [\\\"Routine meeting note\\\"], \\\"score\\\": 3}\\n```\"}]}}]}")
	strategy := detection.NewDelegateStrategy(
		NewGeminiClient("secret", "test-model", server.URL, server.Client()), time.Second)

	result, err := strategy.Score(context.Background(), domain.CanonicalText{Text: "Hello, meeting at 3pm"})

	require.NoError(t, err)
	assert.Equal(t, 3, result.RawScore)
	assert.Equal(t, []string{"Routine meeting note"}, result.Rationales)
	assert.Equal(t, domain.SourceDelegate, result.Source)
}

func TestGeminiClient_UnavailableThroughStrategy(t *testing.T) {
	strategy := detection.NewDelegateStrategy(NewGeminiClient("", "", "", nil), time.Second)

	_, err := strategy.Score(context.Background(), domain.CanonicalText{Text: "hello"})

	assert.ErrorIs(t, err, domain.ErrDelegateUnavailable)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}
