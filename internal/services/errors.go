package services

import (
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidContentType = errors.New("invalid content type")
	ErrObjectNotFound     = errors.New("content not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrUnauthorized       = errors.New("not allowed to perform this action")
)

// ValidationError rejects malformed input and names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// TransitionError carries the reason a moderation action was refused.
type TransitionError struct {
	Hint string
}

func (e *TransitionError) Error() string { return e.Hint }

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Notifier delivers best-effort email. Implementations never report failure.
type Notifier interface {
	Notify(subject, body string, to []string)
}

// ImageCodec shrinks an uploaded image before it is stored.
type ImageCodec interface {
	Compress(r io.Reader) ([]byte, error)
}

// QRRenderer turns a URL into PNG bytes.
type QRRenderer interface {
	Render(url string) ([]byte, error)
}
