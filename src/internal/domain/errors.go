package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindInvalidAmount        ErrorKind = "INVALID_AMOUNT"
	KindInsufficientFunds    ErrorKind = "INSUFFICIENT_FUNDS"
	KindInactiveAccount      ErrorKind = "INACTIVE_ACCOUNT"
	KindDuplicateTransaction ErrorKind = "DUPLICATE_TRANSACTION"
	KindPersistenceFailure   ErrorKind = "PERSISTENCE_FAILURE"
	KindInvalidRequest       ErrorKind = "INVALID_REQUEST"
	KindInvalidState         ErrorKind = "INVALID_STATE"
	KindLimitExceeded        ErrorKind = "LIMIT_EXCEEDED"
	KindForbidden            ErrorKind = "FORBIDDEN"
)

// Error is the failure type returned by every ledger operation. Two errors
// match under errors.Is when their kinds are equal, so callers can test
// against the sentinels below without caring about the message.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

var (
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrInvalidAmount        = &Error{Kind: KindInvalidAmount}
	ErrInsufficientFunds    = &Error{Kind: KindInsufficientFunds}
	ErrInactiveAccount      = &Error{Kind: KindInactiveAccount}
	ErrDuplicateTransaction = &Error{Kind: KindDuplicateTransaction}
	ErrPersistenceFailure   = &Error{Kind: KindPersistenceFailure}
	ErrInvalidRequest       = &Error{Kind: KindInvalidRequest}
	ErrInvalidState         = &Error{Kind: KindInvalidState}
	ErrLimitExceeded        = &Error{Kind: KindLimitExceeded}
	ErrForbidden            = &Error{Kind: KindForbidden}
)

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	default:
		return e.Message + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf reports the kind carried by err. Errors that did not originate in
// the ledger are treated as persistence failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindPersistenceFailure
}

// Describe returns the human-readable part of err without wrapped driver detail.
func Describe(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	if de != nil {
		return string(de.Kind)
	}
	return "unable to process request right now"
}
