package extraction

import (
	"fmt"
	"strings"

	"github.com/phishguard/risk-scoring/internal/domain"
)

const (
	mediaTypePlain = "text/plain"
	mediaTypeHTML  = "text/html"
)

// Extract selects the canonical body text of a parsed message.
//
// Selection policy, over a pre-order walk of the tree:
//   - attachment parts are never considered, whatever their content type
//   - the first text/plain part with a non-empty payload wins and stops the walk
//   - the first non-empty text/html part is kept as a fallback, but the walk goes on
//   - a tree with a single leaf uses that leaf's payload whatever its type
//
// When nothing qualifies the result is ErrNoReadableContent, never an empty text.
func Extract(msg *domain.ParsedMessage) (domain.CanonicalText, error) {
	if msg == nil || msg.Root == nil {
		return domain.CanonicalText{}, fmt.Errorf("empty message tree: %w", domain.ErrNoReadableContent)
	}

	root := msg.Root
	if len(root.Children) == 0 {
		if root.IsAttachment() {
			return domain.CanonicalText{}, fmt.Errorf("single part is an attachment: %w", domain.ErrNoReadableContent)
		}
		text := DecodeText(root.Payload)
		if strings.TrimSpace(text) == "" {
			return domain.CanonicalText{}, fmt.Errorf("single part is empty: %w", domain.ErrNoReadableContent)
		}
		return domain.CanonicalText{Text: text, Provenance: domain.ProvenanceSinglePart}, nil
	}

	var htmlFallback *string
	var plain *string

	walk(root, func(part *domain.MessagePart) bool {
		if part.IsAttachment() || len(part.Children) > 0 {
			return true
		}

		switch mediaType(part.ContentType) {
		case mediaTypePlain:
			text := DecodeText(part.Payload)
			if strings.TrimSpace(text) == "" {
				return true
			}
			plain = &text
			return false
		case mediaTypeHTML:
			if htmlFallback != nil {
				return true
			}
			text := DecodeText(part.Payload)
			if strings.TrimSpace(text) != "" {
				htmlFallback = &text
			}
		}
		return true
	})

	switch {
	case plain != nil:
		return domain.CanonicalText{Text: *plain, Provenance: domain.ProvenancePlainTextPart}, nil
	case htmlFallback != nil:
		return domain.CanonicalText{Text: *htmlFallback, Provenance: domain.ProvenanceHTMLFallback}, nil
	default:
		return domain.CanonicalText{}, fmt.Errorf("no text/plain or text/html part: %w", domain.ErrNoReadableContent)
	}
}

// walk visits parts in pre-order until visit returns false. Children of an
// attachment node are still visited, the node itself is skipped by visit.
func walk(part *domain.MessagePart, visit func(*domain.MessagePart) bool) bool {
	if !visit(part) {
		return false
	}
	for _, child := range part.Children {
		if !walk(child, visit) {
			return false
		}
	}
	return true
}

func mediaType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// CanonicalTextOf runs the extractor when needed and returns the text to score
func CanonicalTextOf(decoded Decoded) (domain.CanonicalText, error) {
	if decoded.Message != nil {
		return Extract(decoded.Message)
	}
	if strings.TrimSpace(decoded.Text) == "" {
		return domain.CanonicalText{}, fmt.Errorf("decoded text is blank: %w", domain.ErrNoReadableContent)
	}
	return domain.CanonicalText{Text: decoded.Text, Provenance: domain.ProvenanceRawString}, nil
}
