package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the service layer.
var (
	// ErrValidation marks missing or malformed required input. Nothing has
	// been written to the store when this is returned.
	ErrValidation = errors.New("validation failed")

	// ErrNoRouteFound means no routing rule, contact default, or gateway
	// fallback produced a target group. Fatal for the inbound message.
	ErrNoRouteFound = errors.New("no route found")

	// ErrAlreadyAcknowledgedOrNotFound is returned when the acknowledge
	// precondition fails. Deliberately does not distinguish "already
	// acknowledged" from "no such message" so existence never leaks
	// across tenants.
	ErrAlreadyAcknowledgedOrNotFound = errors.New("message already acknowledged or not found")

	// ErrInvalidState marks an operation against an entity that is not in
	// the required lifecycle state.
	ErrInvalidState = errors.New("invalid state")
)

// NotFoundError reports a missing referenced entity (gateway, campaign,
// message, ...).
type NotFoundError struct {
	Kind string
	ID   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Kind, e.ID)
}

// NewNotFound builds a NotFoundError for the given entity kind.
func NewNotFound(kind string, id int) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// GatewaySendError wraps a failed call to the external SMS provider. It is
// recorded per recipient and never aborts a batch.
type GatewaySendError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewaySendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway send failed: %v", e.Err)
	}
	return fmt.Sprintf("gateway send failed: status %d: %s", e.StatusCode, e.Body)
}

func (e *GatewaySendError) Unwrap() error { return e.Err }

// Validationf wraps ErrValidation with field detail.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

// InvalidStatef wraps ErrInvalidState with detail about the offending state.
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidState}, args...)...)
}
