package models

import "time"

// VendorCredentials identify one vendor cloud account.
type VendorCredentials struct {
	Email    string `json:"email"`
	Password string `json:"-"` // don’t expose the vendor password
}

// ModeSettings is the requested change for one device.
// Fan defaults to "auto" and Flags to 255 when left unset.
type ModeSettings struct {
	Mode        string   `json:"mode"`
	TargetTempC *float64 `json:"target_temp_c,omitempty"`
	Fan         string   `json:"fan,omitempty"`
	Flags       *int     `json:"flags,omitempty"`
}

// CommandJob is one queued mode-change request. Jobs live in memory only:
// consumed once by the worker, never persisted or re-queued.
type CommandJob struct {
	ID          string
	HomeID      int
	DeviceID    int
	Settings    ModeSettings
	EnqueuedAt  time.Time
	Credentials VendorCredentials
}

// OutcomeStatus tags the terminal state of a job.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFailed    OutcomeStatus = "failed"
)

// CommandOutcome is the terminal result of one job: completed carries the
// last observed snapshot and the poll attempts used, failed carries an error.
type CommandOutcome struct {
	Status   OutcomeStatus
	Snapshot *DeviceSnapshot
	Attempts int
	Err      error
}

// CompletedOutcome builds a completed outcome.
func CompletedOutcome(snap *DeviceSnapshot, attempts int) CommandOutcome {
	return CommandOutcome{Status: OutcomeCompleted, Snapshot: snap, Attempts: attempts}
}

// FailedOutcome builds a failed outcome.
func FailedOutcome(err error) CommandOutcome {
	return CommandOutcome{Status: OutcomeFailed, Err: err}
}
