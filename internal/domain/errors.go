// Package domain holds the error taxonomy shared across the chat service.
package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an Error.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindConfig     ErrorKind = "config"
	KindUpstream   ErrorKind = "upstream"
	KindRateLimit  ErrorKind = "rate_limit"
	KindTimeout    ErrorKind = "timeout"
	KindStorage    ErrorKind = "storage"
	KindNotFound   ErrorKind = "not_found"
)

// Error is a classified error with an optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func ValidationError(message string, err error) *Error {
	return NewError(KindValidation, message, err)
}

func ConfigError(message string, err error) *Error {
	return NewError(KindConfig, message, err)
}

func UpstreamError(message string, err error) *Error {
	return NewError(KindUpstream, message, err)
}

func RateLimitError(message string, err error) *Error {
	return NewError(KindRateLimit, message, err)
}

func TimeoutError(message string, err error) *Error {
	return NewError(KindTimeout, message, err)
}

func StorageError(message string, err error) *Error {
	return NewError(KindStorage, message, err)
}

func NotFoundError(message string, err error) *Error {
	return NewError(KindNotFound, message, err)
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Kind == kind {
			return true
		}
		err = de.Err
	}
	return false
}
