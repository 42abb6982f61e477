package services

import "errors"

// Service errors are translated to HTTP statuses by the handlers:
// ValidationError and ErrBadRequest to 400, ErrForbidden to 403,
// ErrNotFound to 404, anything else to a generic 500.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrForbidden   = errors.New("access forbidden")
	ErrBadRequest  = errors.New("bad request")
	ErrSelfMessage = errors.New("you cannot send personal messages to yourself")
)

// ValidationError marks a missing or malformed field in the request.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
