package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewUUID generates a new UUID
func NewUUID() uuid.UUID {
	return uuid.New()
}

// ParseUUID parses a string into a UUID
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// ShortID returns the first eight hex characters of a fresh UUID. Used to keep
// object keys unique when two uploads race for the same receipt number.
func ShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
