package asset

import "errors"

// ErrInvalidRequest marks caller input errors
var ErrInvalidRequest = errors.New("invalid request")

// RequestError describes one rejected input, rendered as {"error": Title, "message": Message}
type RequestError struct {
	Title   string
	Message string
}

func (e *RequestError) Error() string {
	return e.Title + ": " + e.Message
}

// Unwrap lets errors.Is match ErrInvalidRequest
func (e *RequestError) Unwrap() error {
	return ErrInvalidRequest
}

func invalid(title, message string) error {
	return &RequestError{Title: title, Message: message}
}
