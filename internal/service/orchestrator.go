package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"climate_bridge/internal/logger"
	"climate_bridge/internal/models"
	"climate_bridge/internal/repository"
	"climate_bridge/internal/vendorapi"
)

// Event names on the broadcast channel.
const (
	EventDeviceUpdate = "device-update"
	EventCommandError = "command-error"
)

// ErrStatusUnavailable marks a job whose mode-set succeeded but whose every
// confirmation read failed.
var ErrStatusUnavailable = errors.New("device status unavailable after mode change")

// RetryPolicy bounds the convergence polling after a mode-set. Sleep may be
// replaced in tests to avoid real delay.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       func(ctx context.Context, d time.Duration)
}

// DefaultRetryPolicy polls up to 6 times, 750 ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 6, Delay: 750 * time.Millisecond}
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) {
	if p.Sleep != nil {
		p.Sleep(ctx, d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// DeviceUpdateEvent is the wire shape of a completed-job broadcast.
type DeviceUpdateEvent struct {
	JobID        string   `json:"jobId"`
	HomeID       int      `json:"homeId"`
	DeviceID     int      `json:"deviceId"`
	Name         string   `json:"name,omitempty"`
	Model        string   `json:"model,omitempty"`
	Serial       string   `json:"serial,omitempty"`
	CurrentTempC *float64 `json:"currentTempC"`
	TargetTempC  *float64 `json:"targetTempC"`
	FanSpeed     *int     `json:"fanSpeed"`
	Mode         *int     `json:"mode"`
	Attempts     int      `json:"attempts"`
}

// CommandErrorEvent is the wire shape of a failed-job broadcast.
type CommandErrorEvent struct {
	JobID    string `json:"jobId"`
	HomeID   int    `json:"homeId"`
	DeviceID int    `json:"deviceId"`
	Message  string `json:"message"`
}

// CommandService guarantees at-most-one in-flight vendor mutation: a single
// worker drains the FIFO queue, confirms convergence by polling and publishes
// exactly one outcome per job.
type CommandService struct {
	clients ClientSource
	events  Publisher
	audit   repository.Events
	policy  RetryPolicy
	log     *logger.Logger

	mu      sync.Mutex
	queue   []*models.CommandJob
	running bool
}

func NewCommandService(clients ClientSource, events Publisher, audit repository.Events, policy RetryPolicy, log *logger.Logger) *CommandService {
	if log == nil {
		log = logger.Get(logger.InfoLevel)
	}
	return &CommandService{
		clients: clients,
		events:  events,
		audit:   audit,
		policy:  policy,
		log:     log,
	}
}

// Enqueue appends a job to the queue and starts the worker if it is idle.
// It never blocks on vendor I/O. Position reflects queue depth at enqueue
// time, not a guaranteed future slot.
func (s *CommandService) Enqueue(creds models.VendorCredentials, homeID, deviceID int, settings models.ModeSettings) Receipt {
	job := &models.CommandJob{
		ID:          uuid.NewString(),
		HomeID:      homeID,
		DeviceID:    deviceID,
		Settings:    settings,
		EnqueuedAt:  time.Now().UTC(),
		Credentials: creds,
	}

	s.mu.Lock()
	s.queue = append(s.queue, job)
	position := len(s.queue)
	start := !s.running
	if start {
		s.running = true
	}
	s.mu.Unlock()

	if start {
		go s.drain()
	}
	s.log.Infow("command_enqueued", "job_id", job.ID, "home_id", homeID, "device_id", deviceID, "position", position)
	return Receipt{JobID: job.ID, Position: position}
}

// drain processes jobs strictly in arrival order, one fully to completion
// before the next, and exits once the queue is empty.
func (s *CommandService) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		job := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		outcome := s.runJob(context.Background(), job)
		s.report(job, outcome)
	}
}

// runJob executes one job: mode-set, then bounded confirmation polling. A
// panic inside the job is contained and reported as a failed outcome so the
// worker loop survives.
func (s *CommandService) runJob(ctx context.Context, job *models.CommandJob) (outcome models.CommandOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("command_job_panic", "job_id", job.ID, "panic", r)
			outcome = models.FailedOutcome(fmt.Errorf("job processing panic: %v", r))
		}
	}()

	client, err := s.clients(job.Credentials)
	if err != nil {
		return models.FailedOutcome(err)
	}

	// The mutation is never retried; re-issuing could double-apply it.
	if _, err := client.SetMode(ctx, job.DeviceID, job.Settings); err != nil {
		return models.FailedOutcome(err)
	}

	var last *models.DeviceSnapshot
	attempts := 0
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			s.policy.sleep(ctx, s.policy.Delay)
		}
		snap, err := client.GetDeviceStatus(ctx, job.HomeID, job.DeviceID)
		if err != nil {
			s.log.Debugw("command_poll_failed", "job_id", job.ID, "attempt", attempt, "err", err)
			continue
		}
		last = &snap
		attempts = attempt
		if settingsApplied(snap, job.Settings) {
			break
		}
	}

	if last == nil {
		return models.FailedOutcome(ErrStatusUnavailable)
	}
	// Polling is best-effort confirmation: the last snapshot is reported
	// even when it never matched.
	return models.CompletedOutcome(last, attempts)
}

// settingsApplied reports whether a snapshot reflects the requested settings.
// A mode or fan value with no vendor code (notably "no_change") is not
// verified and counts as matched; this mirrors the vendor app's behavior.
func settingsApplied(snap models.DeviceSnapshot, settings models.ModeSettings) bool {
	if code, ok := vendorapi.ModeCode(settings.Mode); ok {
		if snap.Mode == nil || *snap.Mode != code {
			return false
		}
	}
	if code, ok := vendorapi.FanCode(settings.Fan); ok {
		if snap.FanSpeed == nil || *snap.FanSpeed != code {
			return false
		}
	}
	if settings.TargetTempC != nil {
		if snap.TargetTempC == nil {
			return false
		}
		if math.Round(*snap.TargetTempC) != math.Round(*settings.TargetTempC) {
			return false
		}
	}
	return true
}

// report publishes exactly one broadcast per terminal job and appends a
// best-effort audit record.
func (s *CommandService) report(job *models.CommandJob, outcome models.CommandOutcome) {
	switch outcome.Status {
	case models.OutcomeCompleted:
		snap := outcome.Snapshot
		s.events.Publish(EventDeviceUpdate, DeviceUpdateEvent{
			JobID:        job.ID,
			HomeID:       job.HomeID,
			DeviceID:     job.DeviceID,
			Name:         snap.Name,
			Model:        snap.Model,
			Serial:       snap.Serial,
			CurrentTempC: snap.CurrentTempC,
			TargetTempC:  snap.TargetTempC,
			FanSpeed:     snap.FanSpeed,
			Mode:         snap.Mode,
			Attempts:     outcome.Attempts,
		})
		s.log.Infow("command_completed", "job_id", job.ID, "attempts", outcome.Attempts)
	case models.OutcomeFailed:
		s.events.Publish(EventCommandError, CommandErrorEvent{
			JobID:    job.ID,
			HomeID:   job.HomeID,
			DeviceID: job.DeviceID,
			Message:  outcome.Err.Error(),
		})
		s.log.Errorw("command_failed", "job_id", job.ID, "err", outcome.Err)
	}

	if s.audit == nil {
		return
	}
	event := models.CommandEvent{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		JobID:      job.ID,
		HomeID:     job.HomeID,
		DeviceID:   job.DeviceID,
	}
	if outcome.Status == models.OutcomeCompleted {
		event.Type = "COMPLETED"
		event.Description = fmt.Sprintf("mode change confirmed after %d attempt(s)", outcome.Attempts)
		event.Metadata = map[string]any{"attempts": outcome.Attempts}
	} else {
		event.Type = "FAILED"
		event.Description = outcome.Err.Error()
	}
	if err := s.audit.Append(context.Background(), event); err != nil {
		s.log.Errorw("command_audit_append_failed", "job_id", job.ID, "err", err)
	}
}
