package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewValidationError([]Violation{{Field: "sql", Message: "is required"}}), http.StatusBadRequest},
		{NewAuthError(), http.StatusUnauthorized},
		{NewRouteNotFoundError("GET", "/nope"), http.StatusNotFound},
		{NewRateLimitError(), http.StatusTooManyRequests},
		{NewUpstreamError(errors.New("quota exceeded")), http.StatusInternalServerError},
		{NewInternalError(errors.New("boom")), http.StatusInternalServerError},
		{NewErrorBuilder("Mystery").Build(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Kind, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Status())
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := NewValidationError([]Violation{
		{Field: "sql", Message: "is required"},
		{Field: "maxRows", Message: "must be an integer"},
	})
	assert.Equal(t, "sql: is required; maxRows: must be an integer", err.Message)
	assert.Len(t, err.Violations, 2)

	assert.Equal(t, "Unauthorized user or API key is incorrect", NewAuthError().Message)
	assert.Equal(t, "Route GET:/nope?x=1 not found", NewRouteNotFoundError("GET", "/nope?x=1").Message)
	assert.Equal(t, "quota exceeded", NewUpstreamError(errors.New("quota exceeded")).Message)
}

func TestAsAppError(t *testing.T) {
	upstream := NewUpstreamError(errors.New("denied"))
	wrapped := fmt.Errorf("listing: %w", upstream)

	assert.Same(t, upstream, AsAppError(wrapped))
	assert.True(t, IsErrorKind(wrapped, ErrKindUpstream))

	plain := AsAppError(errors.New("nil map"))
	assert.Equal(t, ErrKindInternal, plain.Kind)
	assert.Equal(t, "nil map", plain.Message)
	assert.False(t, IsErrorKind(errors.New("x"), ErrKindInternal))
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewErrorBuilder(ErrKindUpstream).WithMessage("failed").WithCause(cause).Build()

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "UpstreamError: failed", err.Error())
}

func TestAcceptableCorrelationID(t *testing.T) {
	assert.True(t, AcceptableCorrelationID("abc-123"))
	assert.True(t, AcceptableCorrelationID(NewCorrelationID()))
	assert.True(t, IsValidUUID(NewCorrelationID()))

	assert.False(t, AcceptableCorrelationID(""))
	assert.False(t, AcceptableCorrelationID(strings.Repeat("a", MaxCorrelationIDLength+1)))
	assert.False(t, AcceptableCorrelationID("line\nbreak"))
	assert.False(t, AcceptableCorrelationID("héllo"))
}
