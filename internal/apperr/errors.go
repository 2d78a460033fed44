// Package apperr defines the error kinds shared by the store, the service
// layer, and the CLI/REST/MCP surfaces.
package apperr

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrAmbiguous  = fmt.Errorf("ambiguous: %w", ErrConflict)
	ErrInternal   = errors.New("internal")
)

// Error carries a human-readable cause together with its kind.
// Digest is set when the cause refers to a stored content item.
type Error struct {
	Kind   error
	Msg    string
	Digest string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

// Unwrap exposes both the kind and the wrapped backend error.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Validation returns a validation cause.
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found cause.
func NotFound(format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflict returns a conflict cause naming the digest already stored.
func Conflict(digest, format string, args ...any) error {
	return &Error{Kind: ErrConflict, Msg: fmt.Sprintf(format, args...), Digest: digest}
}

// Ambiguous returns a cause for a digest prefix that matched more than one row.
func Ambiguous(format string, args ...any) error {
	return &Error{Kind: ErrAmbiguous, Msg: fmt.Sprintf(format, args...)}
}

// Internal wraps a backend failure. The backend error is kept for logging
// but the message stays uniform.
func Internal(err error, format string, args ...any) error {
	return &Error{Kind: ErrInternal, Msg: fmt.Sprintf(format, args...), Err: err}
}

// DigestOf returns the digest named by the first *Error in err's chain.
func DigestOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Digest
	}
	return ""
}

// Causes flattens err into user-facing messages. Internal causes hide the
// backend detail. The result is never empty for a non-nil err.
func Causes(err error) []string {
	if err == nil {
		return nil
	}
	var out []string
	var walk func(error)
	walk = func(err error) {
		if e, ok := err.(*Error); ok {
			out = append(out, e.Msg)
			return
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
			return
		}
		var e *Error
		if errors.As(err, &e) {
			out = append(out, e.Msg)
			return
		}
		out = append(out, err.Error())
	}
	walk(err)
	if len(out) == 0 {
		out = append(out, err.Error())
	}
	return out
}
