// internal/model/error.go
package model

import "errors"

// Application-level sentinel errors. Services return these (possibly wrapped
// in an AppError); webutil maps them to HTTP status codes.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternalServer = errors.New("internal server error")
	ErrConflict       = errors.New("resource conflict")
)

// ErrorDetail is the machine-readable error payload of an API response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// APIErrorResponse is the envelope for all error responses.
type APIErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// AppError carries an error code and a caller-facing message alongside the
// sentinel it wraps, so handlers can report detail without losing errors.Is
// classification.
type AppError struct {
	Detail  ErrorDetail
	wrapped error
}

// NewAppError builds an AppError wrapping the given sentinel.
func NewAppError(code, message, field string, wrapped error) *AppError {
	return &AppError{
		Detail:  ErrorDetail{Code: code, Message: message, Field: field},
		wrapped: wrapped,
	}
}

func (e *AppError) Error() string {
	if e.wrapped != nil {
		return e.Detail.Code + ": " + e.Detail.Message + ": " + e.wrapped.Error()
	}
	return e.Detail.Code + ": " + e.Detail.Message
}

func (e *AppError) Unwrap() error {
	return e.wrapped
}
