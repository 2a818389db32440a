package sources

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/emersion/go-mbox"
	"github.com/google/uuid"
	"github.com/phishguard/risk-scoring/internal/domain"
)

// MboxSource implements ports.InputSource for an mbox mailbox file.
// Each message becomes a structured-mail submission.
type MboxSource struct {
	path string
}

// NewMboxSource creates a source over an mbox file
func NewMboxSource(path string) *MboxSource {
	return &MboxSource{path: path}
}

// Submissions reads every message of the mailbox
func (s *MboxSource) Submissions(ctx context.Context) ([]domain.Submission, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mbox: %w", err)
	}
	defer f.Close()

	return ReadMbox(ctx, filepath.Base(s.path), f)
}

// ReadMbox splits an mbox stream into submissions named "<name>#<n>" (1-based)
func ReadMbox(ctx context.Context, name string, r io.Reader) ([]domain.Submission, error) {
	reader := mbox.NewReader(r)
	submissions := make([]domain.Submission, 0)

	for i := 1; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// NextMessage returns an io.Reader positioned at the start of a message
		msgReader, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read message %d of %s: %w", i, name, err)
		}

		submission := domain.Submission{
			ID:   uuid.New(),
			Name: fmt.Sprintf("%s#%d", name, i),
		}

		// A truncated message is reported, never scored on partial data
		data, err := io.ReadAll(msgReader)
		if err != nil {
			submission.Err = fmt.Errorf("failed to read message %d of %s: %w", i, name, err)
		} else {
			// Empty messages are kept so the pipeline reports them as EmptyInput
			submission.Input = domain.BytesInput(domain.InputStructuredMail, data)
		}
		submissions = append(submissions, submission)
	}

	return submissions, nil
}
