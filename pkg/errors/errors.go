package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with a stable machine-readable code and the HTTP status the
// admin API answers with. Internal is logged but never rendered.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Internal == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Internal)
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is matches any AppError carrying the same code, so copies made by WithInternal or
// WithMessage still satisfy errors.Is against the sentinel.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if e == nil || !errors.As(target, &other) || other == nil {
		return false
	}
	return e.Code == other.Code
}

// WithInternal returns a copy carrying err as the logged cause.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy with a different client-facing message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}
	cpy := *e
	cpy.Message = message
	return &cpy
}

var (
	ErrBadRequest         = New("BAD_REQUEST", "Invalid request", http.StatusBadRequest)
	ErrUnauthorized       = New("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrForbidden          = New("FORBIDDEN", "Permission denied", http.StatusForbidden)
	ErrNotFound           = New("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrConflict           = New("CONFLICT", "Operation already in progress", http.StatusConflict)
	ErrRateLimit          = New("RATE_LIMIT_EXCEEDED", "Too many requests, please slow down", http.StatusTooManyRequests)
	ErrInternalServer     = New("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrServiceUnavailable = New("SERVICE_UNAVAILABLE", "Backend temporarily unavailable", http.StatusServiceUnavailable)
)

// New builds an application error.
func New(code, message string, statusCode int) *AppError {
	return &AppError{Code: code, Message: message, StatusCode: statusCode}
}

// Wrap reports err as a 500 with a client-safe message.
func Wrap(err error, message string) *AppError {
	return New("INTERNAL_ERROR", message, http.StatusInternalServerError).WithInternal(err)
}

// NewBadRequest returns a 400 with message.
func NewBadRequest(message string) *AppError {
	return ErrBadRequest.WithMessage(message)
}

// FromError returns the AppError in err's chain, or ErrInternalServer wrapping err.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServer.WithInternal(err)
}
