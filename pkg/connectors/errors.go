package connectors

import (
	"errors"
	"fmt"
)

// FailureClass classifies a connector failure.
type FailureClass string

const (
	// FailureDiscovery indicates an external list/query call returned
	// failure or malformed output. No partial inventory is returned.
	FailureDiscovery FailureClass = "discovery"

	// FailureExecution indicates a remote command invocation could not be
	// dispatched. A remote command's own non-zero exit is not an error; it
	// is reported as a normal ok == false result with captured output.
	FailureExecution FailureClass = "execution"

	// FailureTransfer indicates a file push/pull reported failure. Any
	// staged temporary file is cleaned up before the error propagates.
	FailureTransfer FailureClass = "transfer"

	// FailureValidation indicates an input failed a safety check before
	// any external call was made.
	FailureValidation FailureClass = "validation"
)

// Error is a classified connector failure with context. The captured
// remote error text is carried verbatim so the operator can diagnose the
// underlying CLI/API problem.
type Error struct {
	// Class is the failure classification.
	Class FailureClass

	// Op is the operation that failed, e.g. "incus list" or "file push".
	Op string

	// Stderr is the captured stderr of the failing external call, when
	// one was made.
	Stderr string

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s failed", e.Class, e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewDiscoveryError creates a discovery failure.
func NewDiscoveryError(op, stderr string, err error) *Error {
	return &Error{Class: FailureDiscovery, Op: op, Stderr: stderr, Err: err}
}

// NewExecError creates an execution-dispatch failure.
func NewExecError(op string, err error) *Error {
	return &Error{Class: FailureExecution, Op: op, Err: err}
}

// NewTransferError creates a file transfer failure.
func NewTransferError(op, stderr string, err error) *Error {
	return &Error{Class: FailureTransfer, Op: op, Stderr: stderr, Err: err}
}

// NewValidationError creates an input validation failure.
func NewValidationError(op string, err error) *Error {
	return &Error{Class: FailureValidation, Op: op, Err: err}
}

func hasClass(err error, class FailureClass) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// IsDiscoveryError reports whether err is a discovery failure.
func IsDiscoveryError(err error) bool { return hasClass(err, FailureDiscovery) }

// IsExecError reports whether err is an execution-dispatch failure.
func IsExecError(err error) bool { return hasClass(err, FailureExecution) }

// IsTransferError reports whether err is a transfer failure.
func IsTransferError(err error) bool { return hasClass(err, FailureTransfer) }

// IsValidationError reports whether err is a validation failure.
func IsValidationError(err error) bool { return hasClass(err, FailureValidation) }
