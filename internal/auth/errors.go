package auth

import "errors"

var (
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrFirmInactive          = errors.New("firm account is not active")
	ErrSessionCreationFailed = errors.New("could not create session")
	ErrEmailTaken            = errors.New("email is already registered")
	ErrTaxIDTaken            = errors.New("a firm with this tax id is already registered")
	ErrNotAuthenticated      = errors.New("authentication required")
	ErrForbidden             = errors.New("insufficient permissions")
	ErrServerError           = errors.New("internal server error")
	ErrInvalidPassword       = errors.New("password must be between 1 and 72 bytes")
)

// ValidationError carries a message that is safe to show the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}
