// Package errs defines the error taxonomy shared across components. Only
// ContractViolation, LockContention and unhandled state-load failures are
// meant to propagate to a caller; TransientExternal, SchemaMismatch and
// ResourceTimeout are recorded (telemetry/provenance/GateResult) and
// handled locally by the component that encountered them.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error per the §7 taxonomy.
type Kind int

const (
	TransientExternal Kind = iota
	SchemaMismatch
	ContractViolation
	ResourceTimeout
	LockContention
	IntegrityAlert
)

func (k Kind) String() string {
	switch k {
	case TransientExternal:
		return "transient_external"
	case SchemaMismatch:
		return "schema_mismatch"
	case ContractViolation:
		return "contract_violation"
	case ResourceTimeout:
		return "resource_timeout"
	case LockContention:
		return "lock_contention"
	case IntegrityAlert:
		return "integrity_alert"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch with
// errors.As without string-matching messages.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an *Error of the given kind around an existing error.
func Wrap(kind Kind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: cause.Error(), Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
