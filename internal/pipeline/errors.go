package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind identifies where in a pipeline a failure occurred.
type ErrorKind string

// Error kinds. The set is closed; the message carries the detail.
const (
	KindExtraction     ErrorKind = "extraction"
	KindTransformation ErrorKind = "transformation"
	KindLoad           ErrorKind = "load"
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindNetwork        ErrorKind = "network"
	KindUnexpected     ErrorKind = "unexpected"
)

// StepError is the only error type that crosses a step boundary.
type StepError struct {
	Kind     ErrorKind
	Message  string
	StepName string
	Cause    error
}

func (e *StepError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error in step %q: %s: %v", e.Kind, e.StepName, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error in step %q: %s", e.Kind, e.StepName, e.Message)
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// Is matches another *StepError of the same kind, so errors.Is(err,
// &StepError{Kind: KindNetwork}) works as a kind check.
func (e *StepError) Is(target error) bool {
	t, ok := target.(*StepError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.StepName == "" || t.StepName == e.StepName)
}

func newStepError(kind ErrorKind, step, msg string, cause error) *StepError {
	return &StepError{Kind: kind, Message: msg, StepName: step, Cause: cause}
}

// Extraction reports a failure to pull data out of source content.
func Extraction(step, msg string, cause error) *StepError {
	return newStepError(KindExtraction, step, msg, cause)
}

// Transformation reports a failure to map or normalize extracted data.
func Transformation(step, msg string, cause error) *StepError {
	return newStepError(KindTransformation, step, msg, cause)
}

// Load reports a persistence failure.
func Load(step, msg string, cause error) *StepError {
	return newStepError(KindLoad, step, msg, cause)
}

// Validation reports input or record validation failure.
func Validation(step, msg string, cause error) *StepError {
	return newStepError(KindValidation, step, msg, cause)
}

// NotFound reports a missing upstream resource.
func NotFound(step, msg string, cause error) *StepError {
	return newStepError(KindNotFound, step, msg, cause)
}

// Network reports a transport failure talking to an external system.
func Network(step, msg string, cause error) *StepError {
	return newStepError(KindNetwork, step, msg, cause)
}

// Unexpected wraps panics and errors that carry no classification.
func Unexpected(step, msg string, cause error) *StepError {
	return newStepError(KindUnexpected, step, msg, cause)
}

// AsStepError returns err as a *StepError, classifying unknown errors as
// Unexpected under the given step name. A nil error yields nil.
func AsStepError(step string, err error) *StepError {
	if err == nil {
		return nil
	}
	var se *StepError
	if errors.As(err, &se) {
		return se
	}
	return Unexpected(step, "unclassified step failure", err)
}
