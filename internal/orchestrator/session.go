package orchestrator

import (
	"time"

	"convosense.local/dashboard/internal/analysis"
	"convosense.local/dashboard/internal/view"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusStreaming  Status = "streaming"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// terminal statuses are sticky: only a brand-new session leaves them.
func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s Status) active() bool {
	return s == StatusSubmitting || s == StatusStreaming
}

// Session is one user query and its lifecycle. Result is set only on
// completion and is immutable afterwards; ErrorMessage only on failure.
type Session struct {
	ID            string           `json:"id"`
	Query         string           `json:"query"`
	Status        Status           `json:"status"`
	Progress      int              `json:"progress"`
	StatusMessage string           `json:"status_message,omitempty"`
	Result        *analysis.Result `json:"result,omitempty"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	StartedAt     time.Time        `json:"started_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Snapshot is the immutable rendering state handed to the presentation
// layer. The embedded Result pointer is shared but never mutated after
// attachment.
type Snapshot struct {
	Session      Session     `json:"session"`
	Filter       view.Filter `json:"filter"`
	ShowAll      bool        `json:"show_all"`
	PageSize     int         `json:"page_size"`
	Connected    bool        `json:"connected"`
	ConnectionID string      `json:"connection_id,omitempty"`
}
