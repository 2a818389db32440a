package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/phishguard/risk-scoring/internal/domain"
)

// FileSource implements ports.InputSource for .txt and .eml files on disk
type FileSource struct {
	paths []string
}

// NewFileSource creates a source over the given file paths
func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths}
}

// Submissions reads every file. The source kind comes from the file extension.
// A missing, unreadable or unsupported file becomes a submission carrying its
// error so the rest of the batch is still analyzed.
func (s *FileSource) Submissions(ctx context.Context) ([]domain.Submission, error) {
	submissions := make([]domain.Submission, 0, len(s.paths))
	for _, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		submission, err := ReadFile(path)
		if err != nil {
			submission = domain.Submission{ID: uuid.New(), Name: filepath.Base(path), Err: err}
		}
		submissions = append(submissions, submission)
	}
	return submissions, nil
}

// ReadFile loads one file as a submission
func ReadFile(path string) (domain.Submission, error) {
	kind, err := domain.SourceKindForFilename(path)
	if err != nil {
		return domain.Submission{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	input, err := domain.FromSource(kind, data)
	if err != nil {
		return domain.Submission{}, err
	}

	return domain.Submission{
		ID:    uuid.New(),
		Name:  filepath.Base(path),
		Input: input,
	}, nil
}
