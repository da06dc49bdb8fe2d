package bankclient

import (
	"fmt"

	"github.com/Vashist1110/AVS-Bank/shared/apperr"
)

// APIError is an error response from the bank API.
type APIError struct {
	Status  int
	Kind    apperr.Kind
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bank api: %d %s: %s", e.Status, e.Kind, e.Message)
}

// Is matches the apperr kind sentinels, so callers can write
// errors.Is(err, apperr.ErrInsufficientFunds).
func (e *APIError) Is(target error) bool {
	t, ok := target.(*apperr.Error)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// TransportError means no response was received.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bank api: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
