package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error kinds. The kind doubles as the "error" field of the response envelope.
const (
	ErrKindValidation = "ValidationError"
	ErrKindAuth       = "AuthError"
	ErrKindNotFound   = "Not Found"
	ErrKindRateLimit  = "Too Many Requests"
	ErrKindUpstream   = "UpstreamError"
	ErrKindInternal   = "InternalError"
)

// HTTPStatus maps error kinds to HTTP status codes
var HTTPStatus = map[string]int{
	ErrKindValidation: http.StatusBadRequest,
	ErrKindAuth:       http.StatusUnauthorized,
	ErrKindNotFound:   http.StatusNotFound,
	ErrKindRateLimit:  http.StatusTooManyRequests,
	ErrKindUpstream:   http.StatusInternalServerError,
	ErrKindInternal:   http.StatusInternalServerError,
}

// Violation describes one failed constraint on a request field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Field + ": " + v.Message
}

// AppError represents an application error with additional context
type AppError struct {
	Kind       string      `json:"error"`
	Message    string      `json:"message"`
	Violations []Violation `json:"violations,omitempty"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status code for the error kind.
func (e *AppError) Status() int {
	if status, ok := HTTPStatus[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorBuilder provides a fluent interface for creating errors
type ErrorBuilder struct {
	kind       string
	message    string
	violations []Violation
	cause      error
}

// NewErrorBuilder creates a new error builder
func NewErrorBuilder(kind string) *ErrorBuilder {
	return &ErrorBuilder{kind: kind}
}

// WithMessage sets the error message
func (eb *ErrorBuilder) WithMessage(message string) *ErrorBuilder {
	eb.message = message
	return eb
}

// WithViolations sets the violated constraints
func (eb *ErrorBuilder) WithViolations(violations []Violation) *ErrorBuilder {
	eb.violations = violations
	return eb
}

// WithCause sets the underlying error cause
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.cause = cause
	return eb
}

// Build constructs the final AppError
func (eb *ErrorBuilder) Build() *AppError {
	if eb.message == "" {
		eb.message = getDefaultMessage(eb.kind)
	}

	return &AppError{
		Kind:       eb.kind,
		Message:    eb.message,
		Violations: eb.violations,
		Cause:      eb.cause,
	}
}

func getDefaultMessage(kind string) string {
	messages := map[string]string{
		ErrKindValidation: "Validation failed",
		ErrKindAuth:       "Unauthorized user or API key is incorrect",
		ErrKindNotFound:   "Resource not found",
		ErrKindRateLimit:  "Rate limit exceeded. Please try again later.",
		ErrKindUpstream:   "Warehouse request failed",
		ErrKindInternal:   "Internal server error",
	}

	if msg, exists := messages[kind]; exists {
		return msg
	}
	return "Unknown error"
}

// NewValidationError joins every violation into the message so a client
// can fix all of them in one round trip.
func NewValidationError(violations []Violation) *AppError {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, v.String())
	}
	return NewErrorBuilder(ErrKindValidation).
		WithMessage(strings.Join(parts, "; ")).
		WithViolations(violations).
		Build()
}

func NewAuthError() *AppError {
	return NewErrorBuilder(ErrKindAuth).Build()
}

func NewRouteNotFoundError(method, uri string) *AppError {
	return NewErrorBuilder(ErrKindNotFound).
		WithMessage(fmt.Sprintf("Route %s:%s not found", method, uri)).
		Build()
}

func NewRateLimitError() *AppError {
	return NewErrorBuilder(ErrKindRateLimit).Build()
}

// NewUpstreamError wraps a warehouse failure. The cause's message is
// forwarded as-is.
func NewUpstreamError(cause error) *AppError {
	b := NewErrorBuilder(ErrKindUpstream).WithCause(cause)
	if cause != nil {
		b.WithMessage(cause.Error())
	}
	return b.Build()
}

func NewInternalError(cause error) *AppError {
	b := NewErrorBuilder(ErrKindInternal).WithCause(cause)
	if cause != nil {
		b.WithMessage(cause.Error())
	}
	return b.Build()
}

// AsAppError returns err as an *AppError, classifying unknown errors as
// internal.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(err)
}

// IsErrorKind checks if an error matches a specific kind
func IsErrorKind(err error, kind string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
