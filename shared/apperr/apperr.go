// Package apperr defines the error kinds every service reports to its callers.
//
// Domain code returns *Error values; transport code maps the Kind to a status
// code and a structured body. Anything that is not an *Error is internal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindRecipientNotFound  Kind = "recipient_not_found"
	KindDuplicatePending   Kind = "duplicate_pending"
	KindNoChanges          Kind = "no_changes"
	KindAlreadyResolved    Kind = "already_resolved"
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindInvalidCredentials Kind = "invalid_credentials"
	KindRateLimited        Kind = "rate_limited"
	KindInternal           Kind = "internal"
)

// Error is a classified error. Err, when set, is the underlying cause and is
// never shown to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Kind sentinels. They carry no message, so errors.Is matches any *Error of
// the same kind against them.
var (
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrForbidden          = &Error{Kind: KindForbidden}
	ErrInsufficientFunds  = &Error{Kind: KindInsufficientFunds}
	ErrRecipientNotFound  = &Error{Kind: KindRecipientNotFound}
	ErrDuplicatePending   = &Error{Kind: KindDuplicatePending}
	ErrNoChanges          = &Error{Kind: KindNoChanges}
	ErrAlreadyResolved    = &Error{Kind: KindAlreadyResolved}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrRateLimited        = &Error{Kind: KindRateLimited}
)

// New returns an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, keeping it as the cause.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a kind sentinel of the same kind. Errors with
// a message only match themselves, which lets packages declare their own
// sentinels (e.g. "account not found") without colliding.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		if e.Message != "" {
			return e.Message
		}
		return string(e.Kind)
	}
	return "Internal server error"
}

// HTTPStatus maps a kind to the status code used on the wire.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthorized, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case KindRecipientNotFound, KindNotFound:
		return http.StatusNotFound
	case KindDuplicatePending, KindAlreadyResolved:
		return http.StatusConflict
	case KindNoChanges, KindValidation:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
