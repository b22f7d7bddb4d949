package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies AI service failures.
type ErrorKind string

// Error kinds surfaced by clients.
const (
	ErrNetwork          ErrorKind = "network"
	ErrSchemaMismatch   ErrorKind = "schema_mismatch"
	ErrUnsupportedModel ErrorKind = "unsupported_model"
	ErrProvider         ErrorKind = "provider"
)

// Error represents a failed AI service call.
type Error struct {
	Kind     ErrorKind
	Provider Provider
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("llm %s error (%s): %s: %v", e.Kind, e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("llm %s error (%s): %s", e.Kind, e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var le *Error
	return errors.As(err, &le) && le.Kind == kind
}

// classify turns a raw provider error into an *Error.
func classify(p Provider, msg string, err error) *Error {
	var le *Error
	if errors.As(err, &le) {
		return le
	}
	kind := ErrProvider
	var netErr net.Error
	lower := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.As(err, &netErr):
		kind = ErrNetwork
	case strings.Contains(lower, "connection refused"), strings.Contains(lower, "no such host"),
		strings.Contains(lower, "eof"), strings.Contains(lower, "timeout"):
		kind = ErrNetwork
	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "not supported") || strings.Contains(lower, "does not exist")):
		kind = ErrUnsupportedModel
	}
	return &Error{Kind: kind, Provider: p, Message: msg, Cause: err}
}
