package utils

import (
	"unicode"

	"github.com/google/uuid"
)

// MaxCorrelationIDLength bounds ids accepted from callers.
const MaxCorrelationIDLength = 128

// NewCorrelationID returns a random v4 UUID for tagging a request.
func NewCorrelationID() string {
	return uuid.NewString()
}

// AcceptableCorrelationID reports whether a caller supplied id may be echoed
// back and written to logs: non-empty, bounded and printable ASCII.
func AcceptableCorrelationID(id string) bool {
	if id == "" || len(id) > MaxCorrelationIDLength {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(u string) bool {
	_, err := uuid.Parse(u)
	return err == nil
}
