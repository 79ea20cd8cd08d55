package whatsapp

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned before any network call when no
	// credentials have been saved.
	ErrNotConfigured = errors.New("whatsapp provider is not configured")

	// ErrInvalidRequest wraps a *validator.ValidationError describing the
	// offending fields.
	ErrInvalidRequest = errors.New("invalid whatsapp request")
)

// UnreachableError is a transport-level failure. Callers may retry.
type UnreachableError struct {
	Op  string
	Err error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("whatsapp %s: provider unreachable: %v", e.Op, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// ProviderRejectedError is a non-2xx answer, or a 2xx answer that is missing
// the fields the operation needs.
type ProviderRejectedError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ProviderRejectedError) Error() string {
	return fmt.Sprintf("whatsapp %s: provider rejected request (status %d): %s", e.Op, e.StatusCode, e.Message)
}
