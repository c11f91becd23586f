package ids

import "github.com/google/uuid"

// New returns an opaque token suitable for session and event correlation.
func New() string {
	return uuid.NewString()
}
