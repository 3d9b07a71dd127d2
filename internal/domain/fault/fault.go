package fault

import (
	"errors"
	"fmt"
)

// Code identifies a failure in the service-wide taxonomy. Codes are stable and
// surface verbatim to API callers alongside the precondition that failed.
type Code string

const (
	// validation: terminal, caller error, never retried automatically
	OutOfFieldRange      Code = "OutOfFieldRange"
	DuplicateApplication Code = "DuplicateApplication"
	NoSlotsAvailable     Code = "NoSlotsAvailable"
	InvalidState         Code = "InvalidState"
	InvalidArgument      Code = "InvalidArgument"
	InsufficientFunds    Code = "InsufficientFunds"
	NotFound             Code = "NotFound"

	// authorization: terminal
	NotLender   Code = "NotLender"
	NotBorrower Code = "NotBorrower"

	// proof: terminal, caller must re-prove
	ProofInvalid       Code = "ProofInvalid"
	ProofNotRegistered Code = "ProofNotRegistered"

	// timing: terminal for this call, retry once the predicate changes
	NotYetOverdue Code = "NotYetOverdue"

	// transient: retryable with backoff after re-checking current state
	NetworkTimeout    Code = "NetworkTimeout"
	LedgerUnavailable Code = "LedgerUnavailable"
)

// Class groups codes by retry semantics.
type Class string

const (
	ClassValidation    Class = "validation"
	ClassAuthorization Class = "authorization"
	ClassProof         Class = "proof"
	ClassTiming        Class = "timing"
	ClassTransient     Class = "transient"
)

func (c Code) Class() Class {
	switch c {
	case NotLender, NotBorrower:
		return ClassAuthorization
	case ProofInvalid, ProofNotRegistered:
		return ClassProof
	case NotYetOverdue:
		return ClassTiming
	case NetworkTimeout, LedgerUnavailable:
		return ClassTransient
	default:
		return ClassValidation
	}
}

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the taxonomy code from err, or "" for untyped errors.
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool { return CodeOf(err) == code }

// Retryable reports whether the caller may retry with backoff. Retries must
// re-check current state first: a timed-out ledger call may have committed.
func Retryable(err error) bool { return CodeOf(err).Class() == ClassTransient }
