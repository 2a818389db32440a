package detection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/phishguard/risk-scoring/internal/domain"
)

const fence = "```"

// ExtractEmbeddedPayload pulls the JSON object out of a classifier's raw answer
//
// Accepted grammar, surrounding whitespace ignored:
//
//	answer   := [open] object [close]
//	open     := "```" [tag] newline
//	close    := "```"
//
// where tag is a language name such as "json". An opening fence without its
// closing fence is malformed, and the payload must be a JSON object.
func ExtractEmbeddedPayload(raw string) (string, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return "", fmt.Errorf("%w: empty answer", domain.ErrDelegateMalformedResponse)
	}

	if strings.HasPrefix(payload, fence) {
		newline := strings.IndexByte(payload, '\n')
		if newline < 0 {
			return "", fmt.Errorf("%w: fence without content", domain.ErrDelegateMalformedResponse)
		}
		if tag := strings.TrimSpace(payload[len(fence):newline]); !isFenceTag(tag) {
			return "", fmt.Errorf("%w: unexpected fence tag %q", domain.ErrDelegateMalformedResponse, tag)
		}

		payload = strings.TrimSpace(payload[newline+1:])
		if !strings.HasSuffix(payload, fence) {
			return "", fmt.Errorf("%w: unterminated fence", domain.ErrDelegateMalformedResponse)
		}
		payload = strings.TrimSpace(strings.TrimSuffix(payload, fence))
	}

	if !strings.HasPrefix(payload, "{") {
		return "", fmt.Errorf("%w: answer is not a JSON object", domain.ErrDelegateMalformedResponse)
	}
	return payload, nil
}

func isFenceTag(tag string) bool {
	for _, r := range tag {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isLetter && !isDigit && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// delegateResponse is the classifier contract: {"score": number, "explanation": [string]}.
// Both fields are required; they are kept raw so absence and wrong types can be told apart.
type delegateResponse struct {
	Score       json.RawMessage `json:"score"`
	Explanation json.RawMessage `json:"explanation"`
}

// NormalizeDelegateResponse validates a classifier answer and converts it to a ScoreResult.
//
// A missing or non-numeric score is malformed, never defaulted. The score is
// rounded and clamped to [0, 100]. A single explanation string is accepted as
// a one-item list; blank items are dropped.
func NormalizeDelegateResponse(raw string) (domain.ScoreResult, error) {
	payload, err := ExtractEmbeddedPayload(raw)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	var resp delegateResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		return domain.ScoreResult{}, fmt.Errorf("%w: %v", domain.ErrDelegateMalformedResponse, err)
	}

	if isAbsent(resp.Score) {
		return domain.ScoreResult{}, fmt.Errorf("%w: missing score", domain.ErrDelegateMalformedResponse)
	}
	var score float64
	if err := json.Unmarshal(resp.Score, &score); err != nil {
		return domain.ScoreResult{}, fmt.Errorf("%w: non-numeric score %s", domain.ErrDelegateMalformedResponse, resp.Score)
	}

	rationales, err := parseExplanation(resp.Explanation)
	if err != nil {
		return domain.ScoreResult{}, err
	}

	score = math.Min(math.Max(score, 0), domain.MaxScore)

	return domain.ScoreResult{
		RawScore:   int(math.Round(score)),
		Rationales: rationales,
		Source:     domain.SourceDelegate,
	}, nil
}

func parseExplanation(raw json.RawMessage) ([]string, error) {
	if isAbsent(raw) {
		return nil, fmt.Errorf("%w: missing explanation", domain.ErrDelegateMalformedResponse)
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		var single string
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("%w: explanation is not a list of strings", domain.ErrDelegateMalformedResponse)
		}
		items = []string{single}
	}

	rationales := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			rationales = append(rationales, item)
		}
	}
	return rationales, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
