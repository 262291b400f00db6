/**
 * @description
 * Error kinds shared by the server, the API client and the owner-side manager.
 * Callers classify failures with the Is* helpers instead of matching messages.
 */
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown usernames, unknown method ids and ids owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when a mutation is attempted without a valid session.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports input that was rejected before or during persistence.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// ErrUsernameTaken is the validation failure for a username owned by another account.
var ErrUsernameTaken = &ValidationError{Field: "username", Msg: "username is already taken"}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var validationError *ValidationError
	return errors.As(err, &validationError)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// TransportError carries an HTTP-level failure from the persistence collaborator.
// Message is passed through from the response body when one was available.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("transport failure: %s", e.Message)
	}
	return fmt.Sprintf("transport failure (status %d): %s", e.StatusCode, e.Message)
}

// IsTransportError reports whether err is, or wraps, a TransportError.
func IsTransportError(err error) bool {
	var transportError *TransportError
	return errors.As(err, &transportError)
}
