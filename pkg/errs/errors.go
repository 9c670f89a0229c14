package errs

import (
	"errors"
	"net/http"
)

const (
	ErrStatusInternalServer = http.StatusInternalServerError
	ErrStatusClient         = http.StatusBadRequest
	ErrStatusNotLoggedIn    = http.StatusUnauthorized
	ErrStatusNoPermission   = http.StatusForbidden
	ErrStatusNotFound       = http.StatusNotFound
	ErrStatusUnavailable    = http.StatusServiceUnavailable
)

var (
	ErrInternalServer     = errors.New("Internal server error")
	ErrClient             = errors.New("Bad request")
	ErrNotLoggedIn        = errors.New("Could not validate credentials")
	ErrInvalidCredentials = errors.New("Incorrect username or password")
	ErrExpiredToken       = errors.New("Token has expired")
	ErrForbidden          = errors.New("Not enough permissions")
	ErrNotFound           = errors.New("Resource not found")
	ErrUserNotFound       = errors.New("User not found")
	ErrProductNotFound    = errors.New("Product not found")
	ErrUsernameTaken      = errors.New("Username already exists")
	ErrEmailAlreadyUsed   = errors.New("Email already exists")
	ErrPhoneNumberTaken   = errors.New("Phone number already exists")
	ErrUserIDTaken        = errors.New("ID already exists")
	ErrInvalidResetToken  = errors.New("Invalid or expired reset token")
	ErrPublish            = errors.New("Failed to publish message to broker")
)

// errorMap is ordered so that the most specific sentinel is matched first when
// an error wraps more than one of them.
var errorMap = []struct {
	err    error
	status int
}{
	{ErrUserNotFound, ErrStatusNotFound},
	{ErrProductNotFound, ErrStatusNotFound},
	{ErrNotFound, ErrStatusNotFound},
	{ErrClient, ErrStatusClient},
	{ErrUsernameTaken, ErrStatusClient},
	{ErrEmailAlreadyUsed, ErrStatusClient},
	{ErrPhoneNumberTaken, ErrStatusClient},
	{ErrUserIDTaken, ErrStatusClient},
	{ErrInvalidResetToken, ErrStatusClient},
	{ErrNotLoggedIn, ErrStatusNotLoggedIn},
	{ErrInvalidCredentials, ErrStatusNotLoggedIn},
	{ErrExpiredToken, ErrStatusNotLoggedIn},
	{ErrForbidden, ErrStatusNoPermission},
	{ErrPublish, ErrStatusUnavailable},
	{ErrInternalServer, ErrStatusInternalServer},
}

func GetErrorStatusCode(err error) int {
	for _, e := range errorMap {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return ErrStatusInternalServer
}

// PublicMessage returns the message safe to show to clients: the matched
// sentinel's text, or the generic internal error text for unknown errors.
func PublicMessage(err error) string {
	for _, e := range errorMap {
		if errors.Is(err, e.err) {
			return e.err.Error()
		}
	}
	return ErrInternalServer.Error()
}
