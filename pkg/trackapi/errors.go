package trackapi

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedStatus = errors.New("trackapi.unexpected_status")
	ErrRequestFailed    = errors.New("trackapi.request_failed")
	ErrInvalidResponse  = errors.New("trackapi.invalid_response")
	ErrResponseTooLarge = errors.New("trackapi.response_too_large")
	ErrMissingKey       = errors.New("trackapi.missing_key")
	ErrMissingClickID   = errors.New("trackapi.missing_click_id")
)

// APIError is returned for non-2xx responses.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrUnexpectedStatus
}
