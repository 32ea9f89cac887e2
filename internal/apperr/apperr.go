// Package apperr defines the error-kind taxonomy shared by every internal
// package. Callers classify failures with errors.Is against the sentinel
// Kind values; the API boundary maps a Kind to an HTTP status.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a sentinel error classifying why an operation failed.
type Kind error

var (
	NotAuthorized  Kind = errors.New("not authorized")
	NotFound       Kind = errors.New("not found")
	InvalidInput   Kind = errors.New("invalid input")
	RepoUnavailable Kind = errors.New("repository unavailable")
	IndexMalformed Kind = errors.New("index malformed")
	Transient      Kind = errors.New("transient failure")
	Fatal          Kind = errors.New("fatal failure")
)

// Wrap annotates err with a message and marks it as belonging to kind, so
// that errors.Is(wrapped, kind) holds while the original error is still
// reachable via errors.Unwrap.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", msg, kind)
	}
	return fmt.Errorf("%s: %w: %w", msg, kind, err)
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return errors.Is(err, kind)
}
