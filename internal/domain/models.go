package domain

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SourceKind is how a submission reached us from the presentation layer
type SourceKind string

const (
	SourcePastedText SourceKind = "pasted-text"
	SourceTextFile   SourceKind = "text-file"
	SourceMailFile   SourceKind = "mail-file"
)

// InputKind is the declared payload kind of a byte input
type InputKind string

const (
	InputPlain          InputKind = "plain"
	InputStructuredMail InputKind = "structured-mail"
)

// RawInput is either a byte payload with a declared kind or an already-decoded string.
// Use BytesInput or TextInput to build one; exactly one payload is ever set.
type RawInput struct {
	Kind   InputKind
	Bytes  []byte
	Text   string
	isText bool
}

// BytesInput creates a byte payload input of the given kind
func BytesInput(kind InputKind, payload []byte) RawInput {
	return RawInput{Kind: kind, Bytes: payload}
}

// TextInput creates an already-decoded string input
func TextInput(text string) RawInput {
	return RawInput{Text: text, isText: true}
}

// IsText reports whether the input carries a string payload
func (r RawInput) IsText() bool {
	return r.isText
}

// FromSource maps a presentation-layer source kind onto a RawInput
func FromSource(kind SourceKind, payload []byte) (RawInput, error) {
	switch kind {
	case SourcePastedText:
		return TextInput(string(payload)), nil
	case SourceTextFile:
		return BytesInput(InputPlain, payload), nil
	case SourceMailFile:
		return BytesInput(InputStructuredMail, payload), nil
	default:
		return RawInput{}, fmt.Errorf("%w: source %q", ErrUnsupportedInputKind, kind)
	}
}

// SourceKindForFilename picks the source kind from an uploaded file's extension.
// Only .txt and .eml uploads are accepted.
func SourceKindForFilename(name string) (SourceKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return SourceTextFile, nil
	case ".eml":
		return SourceMailFile, nil
	default:
		return "", fmt.Errorf("%w: file %q (expected .txt or .eml)", ErrUnsupportedInputKind, name)
	}
}

// Submission is one named input waiting to be analyzed, e.g. a message of an mbox file
//
// Err is set when the item could not be read; the batch reports it instead of analyzing Input.
type Submission struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Input RawInput  `json:"-"`
	Err   error     `json:"-"`
}

// MessagePart is a node of a parsed mail message.
// A part with Disposition "attachment" is never used as canonical text.
type MessagePart struct {
	ContentType string
	Disposition string
	Payload     []byte
	Children    []*MessagePart
}

// IsAttachment reports whether the part is declared as an attachment
func (p *MessagePart) IsAttachment() bool {
	return strings.Contains(strings.ToLower(p.Disposition), "attachment")
}

// ParsedMessage is the MIME tree of a structured mail input
type ParsedMessage struct {
	Root *MessagePart
}

// Provenance tells which part of the input the canonical text came from
type Provenance string

const (
	ProvenancePlainTextPart Provenance = "plain-text-part"
	ProvenanceHTMLFallback  Provenance = "html-fallback-part"
	ProvenanceSinglePart    Provenance = "single-part"
	ProvenanceRawString     Provenance = "raw-string"
)

// CanonicalText is the single normalized body used for scoring
type CanonicalText struct {
	Text       string     `json:"text"`
	Provenance Provenance `json:"provenance"`
}

// RuleCategory groups rules for reporting; the catalog itself is a flat ordered list
type RuleCategory string

const (
	RuleCategoryUrgency    RuleCategory = "urgency"
	RuleCategoryCredential RuleCategory = "credential"
	RuleCategoryAttachment RuleCategory = "attachment"
	RuleCategoryLink       RuleCategory = "link"
)

// Rule is a literal, case-insensitive keyword rule
type Rule struct {
	Pattern   string       `json:"pattern"`
	Weight    int          `json:"weight"` // >= 0
	Rationale string       `json:"rationale"`
	Category  RuleCategory `json:"category"`
}

// ScoreSource identifies the strategy that produced a score
type ScoreSource string

const (
	SourceHeuristic ScoreSource = "heuristic"
	SourceDelegate  ScoreSource = "delegate"
)

// ScoreResult is the uniform output of every scoring strategy.
// RawScore is not capped; the classifier clamps it.
type ScoreResult struct {
	RawScore   int         `json:"raw_score"`
	Rationales []string    `json:"rationales"`
	Source     ScoreSource `json:"source"`
}

// ClassifiedResult is the final per-request result handed to the presentation layer
type ClassifiedResult struct {
	ID         uuid.UUID   `json:"id"`
	Score      int         `json:"score"`     // clamped to [0, 100]
	RawScore   int         `json:"raw_score"` // before clamping
	Category   Category    `json:"category"`
	Extreme    bool        `json:"extreme"` // raw score exceeded 100
	Rationales []string    `json:"rationales"`
	Source     ScoreSource `json:"source"`
	Provenance Provenance  `json:"provenance,omitempty"`
}
