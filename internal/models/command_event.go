package models

import "time"

// CommandEvent is a single audit-log entry recording the terminal state of a
// job. The log is diagnostics only: it is never read back to re-enqueue work.
type CommandEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"` // COMPLETED | FAILED
	JobID       string    `json:"job_id"`
	HomeID      int       `json:"home_id"`
	DeviceID    int       `json:"device_id"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
