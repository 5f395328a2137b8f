package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"climate_bridge/internal/models"
)

// scriptedVendor is a stub vendor client recording call order.
type scriptedVendor struct {
	mu           sync.Mutex
	setModeOrder []int // device ids in SetMode call order
	statusCalls  int

	setModeFn func(deviceID int) error
	statusFn  func(call int) (models.DeviceSnapshot, error)
}

func (s *scriptedVendor) ListHomes(ctx context.Context) ([]models.HomeSummary, error) {
	return nil, nil
}

func (s *scriptedVendor) GetDevices(ctx context.Context, homeID int) (map[int]models.DeviceSnapshot, error) {
	return nil, nil
}

func (s *scriptedVendor) SetMode(ctx context.Context, deviceID int, settings models.ModeSettings) (json.RawMessage, error) {
	s.mu.Lock()
	s.setModeOrder = append(s.setModeOrder, deviceID)
	s.mu.Unlock()
	if s.setModeFn != nil {
		return nil, s.setModeFn(deviceID)
	}
	return json.RawMessage(`{}`), nil
}

func (s *scriptedVendor) GetDeviceStatus(ctx context.Context, homeID, deviceID int) (models.DeviceSnapshot, error) {
	s.mu.Lock()
	s.statusCalls++
	call := s.statusCalls
	s.mu.Unlock()
	if s.statusFn != nil {
		return s.statusFn(call)
	}
	return models.DeviceSnapshot{DeviceID: deviceID}, nil
}

func (s *scriptedVendor) statusCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusCalls
}

func (s *scriptedVendor) setModeCalls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.setModeOrder...)
}

// publishedEvent is one captured broadcast.
type publishedEvent struct {
	name    string
	payload any
}

type capturingPublisher struct {
	ch chan publishedEvent
}

func newCapturingPublisher() *capturingPublisher {
	return &capturingPublisher{ch: make(chan publishedEvent, 32)}
}

func (p *capturingPublisher) Publish(event string, payload any) {
	p.ch <- publishedEvent{name: event, payload: payload}
}

func (p *capturingPublisher) next(t *testing.T) publishedEvent {
	t.Helper()
	select {
	case ev := <-p.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a broadcast event")
		return publishedEvent{}
	}
}

func (p *capturingPublisher) expectNone(t *testing.T) {
	t.Helper()
	select {
	case ev := <-p.ch:
		t.Fatalf("unexpected extra event %q: %+v", ev.name, ev.payload)
	case <-time.After(50 * time.Millisecond):
	}
}

// instantPolicy keeps the real attempt ceiling but skips the delay.
func instantPolicy() RetryPolicy {
	p := DefaultRetryPolicy()
	p.Sleep = func(ctx context.Context, d time.Duration) {}
	return p
}

func newTestCommandService(vendor *scriptedVendor, pub Publisher) *CommandService {
	clients := ClientSource(func(creds models.VendorCredentials) (VendorClient, error) {
		return vendor, nil
	})
	return NewCommandService(clients, pub, nil, instantPolicy(), nil)
}

func testCreds() models.VendorCredentials {
	return models.VendorCredentials{Email: "user@example.com", Password: "pw"}
}

func snapshotWith(mode, fan int, target float64) models.DeviceSnapshot {
	return models.DeviceSnapshot{Mode: &mode, FanSpeed: &fan, TargetTempC: &target}
}

func ptrFloat(v float64) *float64 { return &v }

func TestEnqueue_ReturnsReceiptImmediately(t *testing.T) {
	vendor := &scriptedVendor{
		statusFn: func(call int) (models.DeviceSnapshot, error) {
			return snapshotWith(2, 0, 21), nil
		},
	}
	pub := newCapturingPublisher()
	s := newTestCommandService(vendor, pub)

	receipt := s.Enqueue(testCreds(), 1, 7, models.ModeSettings{Mode: "cool", TargetTempC: ptrFloat(21)})
	if receipt.JobID == "" {
		t.Fatalf("expected a job id")
	}
	if receipt.Position != 1 {
		t.Fatalf("expected position 1, got %d", receipt.Position)
	}

	ev := pub.next(t)
	if ev.name != EventDeviceUpdate {
		t.Fatalf("expected %s, got %s", EventDeviceUpdate, ev.name)
	}
}

func TestWorker_ProcessesJobsInFIFOOrder(t *testing.T) {
	vendor := &scriptedVendor{
		statusFn: func(call int) (models.DeviceSnapshot, error) {
			return snapshotWith(2, 0, 21), nil
		},
	}
	pub := newCapturingPublisher()
	s := newTestCommandService(vendor, pub)

	settings := models.ModeSettings{Mode: "cool", TargetTempC: ptrFloat(21)}
	for _, deviceID := range []int{1, 2, 3} {
		s.Enqueue(testCreds(), 10, deviceID, settings)
	}
	for i := 0; i < 3; i++ {
		pub.next(t)
	}

	got := vendor.setModeCalls()
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected FIFO order [1 2 3], got %v", got)
	}
	pub.expectNone(t)
}

func TestJob_SetModeFailureSkipsPolling(t *testing.T) {
	vendor := &scriptedVendor{
		setModeFn: func(deviceID int) error { return errors.New("vendor said no") },
	}
	pub := newCapturingPublisher()
	s := newTestCommandService(vendor, pub)

	s.Enqueue(testCreds(), 1, 7, models.ModeSettings{Mode: "cool"})

	ev := pub.next(t)
	if ev.name != EventCommandError {
		t.Fatalf("expected %s, got %s", EventCommandError, ev.name)
	}
	errEv, ok := ev.payload.(CommandErrorEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", ev.payload)
	}
	if !strings.Contains(errEv.Message, "vendor said no") {
		t.Fatalf("unexpected message %q", errEv.Message)
	}
	if n := vendor.statusCallCount(); n != 0 {
		t.Fatalf("expected no status polls after a failed mode-set, got %d", n)
	}
}

func TestJob_NeverMatchingCompletesWithLastSnapshot(t *testing.T) {
	// Snapshot never reflects the requested mode; polling is best-effort
	// confirmation, so the job still completes after the ceiling.
	vendor := &scriptedVendor{
		statusFn: func(call int) (models.DeviceSnapshot, error) {
			return snapshotWith(1, 0, 19), nil
		},
	}
	pub := newCapturingPublisher()
	s := newTestCommandService(vendor, pub)

	s.Enqueue(testCreds(), 1, 7, models.ModeSettings{Mode: "cool", TargetTempC: ptrFloat(21)})

	ev := pub.next(t)
	if ev.name != EventDeviceUpdate {
		t.Fatalf("expected %s, got %s", EventDeviceUpdate, ev.name)
	}
	update, ok := ev.payload.(DeviceUpdateEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", ev.payload)
	}
	if update.Attempts != 6 {
		t.Fatalf("expected 6 attempts, got %d", update.Attempts)
	}
	if n := vendor.statusCallCount(); n != 6 {
		t.Fatalf("expected 6 status polls, got %d", n)
	}
}

func TestJob_AllStatusFetchesFailingFails(t *testing.T) {
	vendor := &scriptedVendor{
		statusFn: func(call int) (models.DeviceSnapshot, error) {
			return models.DeviceSnapshot{}, errors.New("vendor unreachable")
		},
	}
	pub := newCapturingPublisher()
	s := newTestCommandService(vendor, pub)

	s.Enqueue(testCreds(), 1, 7, models.ModeSettings{Mode: "cool"})

	ev := pub.next(t)
	if ev.name != EventCommandError {
		t.Fatalf("expected %s, got %s", EventCommandError, ev.name)
	}
	errEv := ev.payload.(CommandErrorEvent)
	if !strings.Contains(errEv.Message, "status unavailable") {
		t.Fatalf("expected the dedicated status-unavailable error, got %q", errEv.Message)
	}
	if n := vendor.statusCallCount(); n != 6 {
		t.Fatalf("expected 6 status polls, got %d", n)
	}
}

func TestJob_MatchOnSecondPoll(t *testing.T) {
	vendor := &scriptedVendor{
		statusFn: func(call int) (models.DeviceSnapshot, error) {
			if call == 1 {
				return snapshotWith(1, 0, 19), nil
			}
			return snapshotWith(2, 0, 21), nil
		},
	}
	pub := newCapturingPublisher()
	s := newTestCommandService(vendor, pub)

	s.Enqueue(testCreds(), 1, 7, models.ModeSettings{Mode: "cool", TargetTempC: ptrFloat(21)})

	ev := pub.next(t)
	if ev.name != EventDeviceUpdate {
		t.Fatalf("expected %s, got %s", EventDeviceUpdate, ev.name)
	}
	update := ev.payload.(DeviceUpdateEvent)
	if update.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", update.Attempts)
	}
	if update.DeviceID != 7 || update.HomeID != 1 {
		t.Fatalf("unexpected event addressing: %+v", update)
	}
	// Exactly one broadcast per terminal job.
	pub.expectNone(t)
}

func TestWorker_SurvivesPanicInJob(t *testing.T) {
	first := true
	vendor := &scriptedVendor{
		setModeFn: func(deviceID int) error {
			if first {
				first = false
				panic("boom")
			}
			return nil
		},
		statusFn: func(call int) (models.DeviceSnapshot, error) {
			return snapshotWith(2, 0, 21), nil
		},
	}
	pub := newCapturingPublisher()
	s := newTestCommandService(vendor, pub)

	settings := models.ModeSettings{Mode: "cool", TargetTempC: ptrFloat(21)}
	s.Enqueue(testCreds(), 1, 7, settings)
	s.Enqueue(testCreds(), 1, 8, settings)

	ev := pub.next(t)
	if ev.name != EventCommandError {
		t.Fatalf("expected panic job to fail, got %s", ev.name)
	}
	ev = pub.next(t)
	if ev.name != EventDeviceUpdate {
		t.Fatalf("expected the worker to keep draining after a panic, got %s", ev.name)
	}
}

func TestSettingsApplied(t *testing.T) {
	cases := []struct {
		name     string
		snap     models.DeviceSnapshot
		settings models.ModeSettings
		want     bool
	}{
		{
			name:     "exact match",
			snap:     snapshotWith(2, 0, 21),
			settings: models.ModeSettings{Mode: "cool", Fan: "auto", TargetTempC: ptrFloat(21)},
			want:     true,
		},
		{
			name:     "mode mismatch",
			snap:     snapshotWith(1, 0, 21),
			settings: models.ModeSettings{Mode: "cool"},
			want:     false,
		},
		{
			name:     "unmapped mode is not verified",
			snap:     snapshotWith(1, 0, 21),
			settings: models.ModeSettings{Mode: "no_change"},
			want:     true,
		},
		{
			name:     "rounded target temperatures compare equal",
			snap:     snapshotWith(2, 0, 21.4),
			settings: models.ModeSettings{Mode: "cool", TargetTempC: ptrFloat(20.6)},
			want:     true,
		},
		{
			name:     "missing snapshot target never matches",
			snap:     models.DeviceSnapshot{Mode: func() *int { m := 2; return &m }()},
			settings: models.ModeSettings{Mode: "cool", TargetTempC: ptrFloat(21)},
			want:     false,
		},
		{
			name:     "fan mismatch",
			snap:     snapshotWith(2, 3, 21),
			settings: models.ModeSettings{Mode: "cool", Fan: "low"},
			want:     false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := settingsApplied(tc.snap, tc.settings); got != tc.want {
				t.Fatalf("settingsApplied = %v, want %v", got, tc.want)
			}
		})
	}
}
