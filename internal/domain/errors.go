package domain

import (
	"context"
	"errors"
)

// Failure taxonomy of the analysis pipeline.
// Wrap with fmt.Errorf("...: %w", Err...) and test with errors.Is.
var (
	ErrUnsupportedInputKind      = errors.New("unsupported input kind")
	ErrEmptyInput                = errors.New("empty input")
	ErrNoReadableContent         = errors.New("no readable content")
	ErrDelegateUnavailable       = errors.New("delegate classifier unavailable")
	ErrDelegateMalformedResponse = errors.New("delegate classifier returned a malformed response")
)

// FailureKind is the tagged form of a pipeline failure
type FailureKind string

const (
	FailureUnsupportedInputKind      FailureKind = "unsupported_input_kind"
	FailureEmptyInput                FailureKind = "empty_input"
	FailureNoReadableContent         FailureKind = "no_readable_content"
	FailureDelegateUnavailable       FailureKind = "delegate_unavailable"
	FailureDelegateMalformedResponse FailureKind = "delegate_malformed_response"
	FailureCanceled                  FailureKind = "canceled"
	FailureInternal                  FailureKind = "internal"
)

// FailureKindOf maps an error onto its tag
func FailureKindOf(err error) FailureKind {
	switch {
	case errors.Is(err, ErrUnsupportedInputKind):
		return FailureUnsupportedInputKind
	case errors.Is(err, ErrEmptyInput):
		return FailureEmptyInput
	case errors.Is(err, ErrNoReadableContent):
		return FailureNoReadableContent
	case errors.Is(err, ErrDelegateMalformedResponse):
		return FailureDelegateMalformedResponse
	case errors.Is(err, ErrDelegateUnavailable):
		return FailureDelegateUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return FailureCanceled
	default:
		return FailureInternal
	}
}

// IsCallerError reports failures caused by the submitted input; these are never retried
func IsCallerError(err error) bool {
	kind := FailureKindOf(err)
	return kind == FailureUnsupportedInputKind || kind == FailureEmptyInput
}

// IsDelegateFailure reports failures a fallback strategy may recover from
func IsDelegateFailure(err error) bool {
	return errors.Is(err, ErrDelegateUnavailable) || errors.Is(err, ErrDelegateMalformedResponse)
}

// UserMessage returns the user-facing message for a failure kind
func UserMessage(kind FailureKind) string {
	switch kind {
	case FailureUnsupportedInputKind:
		return "File type not supported. Please upload a .txt or .eml file."
	case FailureEmptyInput:
		return "Please paste an email text or upload a non-empty file to analyze."
	case FailureNoReadableContent:
		return "No text found in this email. It might be an image-only email."
	case FailureDelegateUnavailable:
		return "The classifier could not be reached. Please try again later."
	case FailureDelegateMalformedResponse:
		return "The classifier returned an unreadable answer. Please try again."
	case FailureCanceled:
		return "The analysis was canceled."
	default:
		return "The email could not be analyzed."
	}
}
