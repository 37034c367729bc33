package core

import (
	"errors"
	"fmt"
)

// Kind classifies an import error for callers. The web layer maps kinds
// to HTTP status codes; the core never imports net/http.
type Kind int

const (
	// KindInternal is the zero kind for unclassified failures.
	KindInternal Kind = iota

	// KindInvalidInput marks a malformed upload or request. Never retried.
	KindInvalidInput

	// KindNotConfigured marks a missing or incomplete asset store config.
	KindNotConfigured

	// KindNoEligibleContent marks an import whose charts all fell to the
	// mode filter.
	KindNoEligibleContent

	// KindUploadFailed marks a remote store rejection; it aborts the
	// whole import.
	KindUploadFailed

	// KindNotFound marks a lookup of a set or difficulty that does not
	// exist.
	KindNotFound
)

// Error is the core error type. It carries a Kind for classification and
// optionally wraps an underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// ErrInvalidInput creates a KindInvalidInput error.
func ErrInvalidInput(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// ErrNotConfigured creates a KindNotConfigured error.
func ErrNotConfigured(format string, args ...any) *Error {
	return &Error{Kind: KindNotConfigured, Message: fmt.Sprintf(format, args...)}
}

// ErrNoEligibleContent creates a KindNoEligibleContent error.
func ErrNoEligibleContent(format string, args ...any) *Error {
	return &Error{Kind: KindNoEligibleContent, Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound creates a KindNotFound error.
func ErrNotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// ErrUploadFailed creates a KindUploadFailed error naming the relative
// path whose upload was rejected, wrapping the store's error.
func ErrUploadFailed(relPath string, err error) *Error {
	return &Error{
		Kind:    KindUploadFailed,
		Message: fmt.Sprintf("upload %q to asset store", relPath),
		Err:     err,
	}
}

// KindOf extracts the Kind from err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}
