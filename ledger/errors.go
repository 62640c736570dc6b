package ledger

import (
	"errors"
	"fmt"
)

// Machine-checkable reason tags. The first two classify operation errors;
// the last three classify negative validation outcomes and travel on
// ValidationOutcome.Reason rather than as errors.
const (
	ReasonValidationError = "validation_error"
	ReasonNotFound        = "not_found"
	ReasonDeviceMismatch  = "device_mismatch"
	ReasonExpired         = "expired"
	ReasonInvalidCode     = "invalid_code"
)

// Error is a classified ledger failure. Anything else bubbling out of the
// ledger is an infrastructure fault from the store.
type Error struct {
	Reason  string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(reason, format string, args ...interface{}) *Error {
	return &Error{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the reason tag from a ledger error, or "" for
// unclassified errors.
func ReasonOf(err error) string {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Reason
	}
	return ""
}

func IsValidationError(err error) bool {
	return ReasonOf(err) == ReasonValidationError
}

func IsNotFound(err error) bool {
	return ReasonOf(err) == ReasonNotFound
}
