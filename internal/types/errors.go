package types

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrPrecondition  = errors.New("precondition failed")
	ErrInvalidConfig = errors.New("invalid config")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrLastVisible   = errors.New("at least one item must remain visible")

	ErrInvalidBackend  = errors.New("invalid backend")
	ErrDataStoreAccess = errors.New("data store read/write error")

	ErrNetwork      = errors.New("network error")
	ErrAPI          = errors.New("api error")
	ErrUnauthorized = errors.New("unauthorized")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}

// Reason tells why a request was refused as unauthorized.
type Reason string

const (
	ReasonSessionExpired Reason = "session_expired"
	ReasonUnauthorized   Reason = "unauthorized"
	ReasonNoToken        Reason = "no_token"
)

// NetworkError is returned once the transport kept failing after every retry.
// Attempts counts the initial try plus the retries.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error after %d attempts: %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// APIError is a non-2xx reply from the server. Code is the server supplied error code,
// if any. Message is taken from the payload, falling back to the HTTP status text.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// NewAPIError builds an APIError, defaulting the message to the status text.
func NewAPIError(status int, code, message string) *APIError {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	return &APIError{Status: status, Code: code, Message: message}
}

// UnauthorizedError means the credential was missing, rejected, or could not be refreshed.
type UnauthorizedError struct {
	Reason Reason
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Reason)
}

func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// UserMessage renders err the way the admin UI reports it.
func UserMessage(err error) string {
	var apiErr *APIError
	var authErr *UnauthorizedError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNetwork):
		return "Network error, check your connection."
	case errors.As(err, &authErr):
		if authErr.Reason == ReasonSessionExpired {
			return "Your session has expired, please sign in again."
		}
		return "You are not signed in."
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, ErrLastVisible):
		return "At least one item must remain visible."
	default:
		return err.Error()
	}
}
