package extraction

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/textproto"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/phishguard/risk-scoring/internal/domain"
)

// maxPartDepth bounds recursion into nested multiparts
const maxPartDepth = 32

func init() {
	// Legacy charsets that show up in real-world mail but are not registered by default
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

// Decoded is the output of Decode: a parsed message tree for structured mail,
// or a flat string for everything else. Exactly one of the two is set.
type Decoded struct {
	Message *domain.ParsedMessage
	Text    string
}

// Decode turns a raw input into a message tree or a flat string
func Decode(in domain.RawInput) (Decoded, error) {
	if in.IsText() {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return Decoded{}, fmt.Errorf("pasted text: %w", domain.ErrEmptyInput)
		}
		return Decoded{Text: text}, nil
	}

	switch in.Kind {
	case domain.InputPlain:
		if len(in.Bytes) == 0 {
			return Decoded{}, fmt.Errorf("plain payload: %w", domain.ErrEmptyInput)
		}
		text := DecodeText(in.Bytes)
		if strings.TrimSpace(text) == "" {
			return Decoded{}, fmt.Errorf("plain payload is blank: %w", domain.ErrEmptyInput)
		}
		return Decoded{Text: text}, nil

	case domain.InputStructuredMail:
		if len(in.Bytes) == 0 {
			return Decoded{}, fmt.Errorf("mail payload: %w", domain.ErrEmptyInput)
		}
		return Decoded{Message: ParseMessage(in.Bytes)}, nil

	default:
		return Decoded{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedInputKind, in.Kind)
	}
}

// DecodeText converts payload bytes to a string, replacing invalid UTF-8 with U+FFFD
func DecodeText(payload []byte) string {
	decoded, err := unicode.UTF8.NewDecoder().Bytes(payload)
	if err != nil {
		return strings.ToValidUTF8(string(payload), "\uFFFD")
	}
	return string(decoded)
}

// ParseMessage parses raw mail bytes into a MIME tree.
// It never fails: unreadable headers degrade to a single text/plain node holding the raw bytes.
func ParseMessage(data []byte) *domain.ParsedMessage {
	entity, err := message.Read(bytes.NewReader(data))
	if entity == nil || (err != nil && !isRecoverable(err)) {
		return &domain.ParsedMessage{Root: &domain.MessagePart{
			ContentType: "text/plain",
			Payload:     data,
		}}
	}

	return &domain.ParsedMessage{Root: buildPart(entity, 0)}
}

// isRecoverable reports entity errors that still leave a readable body
func isRecoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}

func buildPart(entity *message.Entity, depth int) *domain.MessagePart {
	contentType, params := contentTypeOf(entity.Header)
	part := &domain.MessagePart{
		ContentType: contentType,
		Disposition: dispositionOf(entity.Header),
	}

	// Partial reads are kept: a truncated body is better than none
	body, _ := io.ReadAll(entity.Body)

	if !strings.HasPrefix(contentType, "multipart/") || depth >= maxPartDepth {
		part.Payload = body
		return part
	}

	children := readChildren(body, params["boundary"], depth)
	if len(children) == 0 {
		// Missing or broken boundary: keep the multipart body as a single leaf
		part.Payload = body
		return part
	}

	part.Children = children
	return part
}

func readChildren(body []byte, boundary string, depth int) []*domain.MessagePart {
	if boundary == "" {
		return nil
	}

	mr := textproto.NewMultipartReader(bytes.NewReader(body), boundary)
	var children []*domain.MessagePart
	for {
		p, err := mr.NextPart()
		if err != nil {
			// io.EOF ends the multipart; any other error keeps what was read so far
			return children
		}

		entity, err := message.New(message.Header{Header: p.Header}, p)
		if entity == nil || (err != nil && !isRecoverable(err)) {
			raw, _ := io.ReadAll(p)
			children = append(children, &domain.MessagePart{
				ContentType: rawMediaType(p.Header.Get("Content-Type")),
				Disposition: strings.ToLower(p.Header.Get("Content-Disposition")),
				Payload:     raw,
			})
			continue
		}

		children = append(children, buildPart(entity, depth+1))
	}
}

func contentTypeOf(h message.Header) (string, map[string]string) {
	raw := h.Get("Content-Type")
	if strings.TrimSpace(raw) == "" {
		return "text/plain", nil
	}
	t, params, err := h.ContentType()
	if err != nil {
		return rawMediaType(raw), nil
	}
	return strings.ToLower(t), params
}

func dispositionOf(h message.Header) string {
	raw := h.Get("Content-Disposition")
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	disp, _, err := h.ContentDisposition()
	if err != nil {
		// Keep the raw value so an unparsable attachment header is still recognized
		return strings.ToLower(raw)
	}
	return strings.ToLower(disp)
}

// rawMediaType extracts "type/subtype" from an unparsable Content-Type value
func rawMediaType(raw string) string {
	if i := strings.Index(raw, ";"); i >= 0 {
		raw = raw[:i]
	}
	t := strings.ToLower(strings.TrimSpace(raw))
	if t == "" {
		return "text/plain"
	}
	return t
}
