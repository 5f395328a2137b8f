package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"climate_bridge/internal/logger"
)

// DefaultHeartbeat is the interval between keep-alive pings per subscriber.
const DefaultHeartbeat = 25 * time.Second

// Stream is one subscriber's underlying transport. Implementations do not
// need to be safe for concurrent writes; the hub serializes them.
type Stream interface {
	// WriteEvent delivers one named event with a pre-serialized payload.
	WriteEvent(name string, data []byte) error
	// WritePing delivers a no-op liveness frame.
	WritePing() error
	// Close tears the transport down; errors are the caller's to ignore.
	Close() error
}

// Hub owns the subscriber registry and fans out events to every connected
// stream. A subscriber that fails a write is dropped on its own; the others
// keep receiving.
type Hub struct {
	heartbeat time.Duration
	log       *logger.Logger

	mu   sync.Mutex
	subs map[string]*subscriber
}

type subscriber struct {
	id     string
	stream Stream
	done   chan struct{}

	// wmu serializes event and heartbeat writes to the same stream.
	wmu sync.Mutex
}

// New builds a hub with the default heartbeat interval.
func New(log *logger.Logger) *Hub {
	return NewWithHeartbeat(log, DefaultHeartbeat)
}

// NewWithHeartbeat builds a hub with a custom heartbeat interval.
func NewWithHeartbeat(log *logger.Logger, heartbeat time.Duration) *Hub {
	if log == nil {
		log = logger.Get(logger.InfoLevel)
	}
	return &Hub{
		heartbeat: heartbeat,
		subs:      make(map[string]*subscriber),
		log:       log,
	}
}

// connectedAck is the first frame every subscriber receives.
type connectedAck struct {
	SubscriberID string `json:"subscriberId"`
}

// Subscribe registers a stream, writes the connection acknowledgement and
// starts its heartbeat. If the ack cannot be written the stream is closed and
// never registered.
func (h *Hub) Subscribe(stream Stream) (string, error) {
	sub := &subscriber{
		id:     uuid.NewString(),
		stream: stream,
		done:   make(chan struct{}),
	}

	ack, err := json.Marshal(connectedAck{SubscriberID: sub.id})
	if err != nil {
		return "", err
	}
	if err := stream.WriteEvent("connected", ack); err != nil {
		_ = stream.Close()
		return "", err
	}

	h.mu.Lock()
	h.subs[sub.id] = sub
	count := len(h.subs)
	h.mu.Unlock()

	go h.heartbeatLoop(sub)
	h.log.Infow("subscriber_connected", "subscriber_id", sub.id, "count", count)
	return sub.id, nil
}

// Publish serializes the payload once and writes it to every registered
// subscriber. Failing subscribers are removed; delivery to the rest proceeds.
func (h *Hub) Publish(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Errorw("broadcast_marshal_failed", "event", event, "err", err)
		return
	}

	for _, sub := range h.snapshot() {
		sub.wmu.Lock()
		err := sub.stream.WriteEvent(event, data)
		sub.wmu.Unlock()
		if err != nil {
			h.log.Infow("subscriber_write_failed", "subscriber_id", sub.id, "event", event, "err", err)
			h.Unsubscribe(sub.id)
		}
	}
}

// Unsubscribe removes one subscriber: cancels its heartbeat and attempts a
// graceful stream close, swallowing close errors. Idempotent.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()
	if !ok {
		return
	}

	close(sub.done)
	_ = sub.stream.Close()
	h.log.Infow("subscriber_disconnected", "subscriber_id", id, "count", h.Count())
}

// Count reports the current subscriber count, for observability only.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// CloseAll drops every subscriber; used at shutdown.
func (h *Hub) CloseAll() {
	for _, sub := range h.snapshot() {
		h.Unsubscribe(sub.id)
	}
}

func (h *Hub) snapshot() []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		out = append(out, sub)
	}
	return out
}

// heartbeatLoop writes a ping frame at the configured interval until the
// subscriber is removed. A failing ping removes the subscriber.
func (h *Hub) heartbeatLoop(sub *subscriber) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-sub.done:
			return
		case <-ticker.C:
			sub.wmu.Lock()
			err := sub.stream.WritePing()
			sub.wmu.Unlock()
			if err != nil {
				h.log.Infow("subscriber_ping_failed", "subscriber_id", sub.id, "err", err)
				h.Unsubscribe(sub.id)
				return
			}
		}
	}
}
