package delegate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/phishguard/risk-scoring/internal/domain"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-2.5-flash"

	// maxErrorBody caps how much of an error response ends up in an error message
	maxErrorBody = 512
)

// ErrMissingAPIKey is returned when the client has no credentials to call the API
var ErrMissingAPIKey = errors.New("missing API key")

// promptTemplate asks for the {"explanation": [...], "score": n} contract.
// The email is inserted with %q so quotes in the body cannot end the prompt's quoting.
const promptTemplate = `You are a helpful security assistant for a senior citizen.

Analyze this email:
%q

---
SCORING RULES:
- If the email is GENUINE/SAFE (even if it is about security or 2FA), the score MUST be between 0 and 10.
- If it is a SCAM/PHISHING, the score should be 80-100.
- If uncertain or spam, use 40-60.

Your goal:
1. Decide whether it is safe or not.
2. Write 3 simple bullet points explaining why.
3. Assign the score based on your decision.
---

Respond with valid JSON only, no markdown, using exactly this structure:
{"explanation": ["Reason 1", "Reason 2", "Reason 3"], "score": <number 0-100>}`

// GeminiClient implements ports.DelegateClassifier with the Gemini generateContent REST API
//
// Credentials are passed in by the caller; the client holds no global state.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient creates a new client. Empty model/baseURL use the defaults;
// a nil httpClient uses http.DefaultClient (deadlines come from the request context).
func NewGeminiClient(apiKey, model, baseURL string, httpClient *http.Client) *GeminiClient {
	if model == "" {
		model = DefaultGeminiModel
	}
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Name returns the classifier name
func (c *GeminiClient) Name() string {
	return "gemini"
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Classify sends the email text to Gemini and returns the model's raw answer
func (c *GeminiClient) Classify(ctx context.Context, text string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: fmt.Sprintf(promptTemplate, text)}}},
		},
		GenerationConfig: geminiGenerationConfig{ResponseMimeType: "application/json"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	apiURL := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini api request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini api error (status %d): %s", resp.StatusCode, truncate(string(body), maxErrorBody))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("%w: undecodable gemini envelope: %v", domain.ErrDelegateMalformedResponse, err)
	}

	if geminiResp.Error != nil {
		return "", fmt.Errorf("gemini api returned error: %s", geminiResp.Error.Message)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates returned from gemini", domain.ErrDelegateMalformedResponse)
	}

	var answer strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		answer.WriteString(part.Text)
	}
	return answer.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
