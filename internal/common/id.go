package common

import (
	"github.com/google/uuid"
)

// NewSessionID generates a unique scrape session ID with the "session_" prefix
// Format: session_<uuid>
func NewSessionID() string {
	return "session_" + uuid.New().String()
}
