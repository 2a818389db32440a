package ports

import "context"

// DelegateClassifier defines the contract for an external classifier (e.g. a hosted language model)
//
// Implementations only handle transport: they send the canonical text and return the
// classifier's raw answer. Validation and normalization happen in the detection package.
type DelegateClassifier interface {
	// Classify sends text to the classifier and returns its raw textual answer.
	// It must honor ctx cancellation and deadlines.
	Classify(ctx context.Context, text string) (string, error)

	// Name returns the classifier name used in logs and errors
	Name() string
}
