package composer

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidInput matches every *ValidationError
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream matches every *UpstreamError
	ErrUpstream = errors.New("upstream failure")
)

// FieldError describes one rejected request field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any model call when the request is malformed
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Field + " " + f.Message
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// UpstreamError wraps a failure of the completion capability
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return "upstream failure: " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}
