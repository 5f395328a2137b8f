package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Write timing configuration for websocket subscribers.
const writeWait = 10 * time.Second

var errStreamClosed = errors.New("subscriber stream closed")

// Upgrader for HTTP -> WebSocket. Consider tightening CheckOrigin in production.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origins for production
}

// @Summary      Subscribe to events (SSE)
// @Description  Long-lived text/event-stream carrying device-update, command-error and heartbeat frames.
// @Tags         events
// @Produce      text/event-stream
// @Router       /api/v1/events [get]
// @Security     BearerAuth
func (h *Handler) sseSubscribe(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	stream := newSSEStream(c.Writer)
	id, err := h.hub.Subscribe(stream)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("sse_subscribe_failed", "err", err)
		}
		return
	}

	// Hold the request open until the client goes away or the hub drops us.
	select {
	case <-c.Request.Context().Done():
	case <-stream.closed:
	}
	h.hub.Unsubscribe(id)
}

// @Summary      Subscribe to events (WebSocket)
// @Tags         events
// @Router       /api/v1/ws [get]
// @Security     BearerAuth
func (h *Handler) wsSubscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}

	id, err := h.hub.Subscribe(&wsStream{conn: conn})
	if err != nil {
		if h.log != nil {
			h.log.Infow("ws_subscribe_failed", "err", err)
		}
		_ = conn.Close()
		return
	}

	// Reader loop drains control frames and detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.hub.Unsubscribe(id)
}

// sseStream writes server-sent-event frames onto the response writer.
type sseStream struct {
	w      gin.ResponseWriter
	closed chan struct{}
	once   sync.Once
}

func newSSEStream(w gin.ResponseWriter) *sseStream {
	return &sseStream{w: w, closed: make(chan struct{})}
}

func (s *sseStream) WriteEvent(name string, data []byte) error {
	select {
	case <-s.closed:
		return errStreamClosed
	default:
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

func (s *sseStream) WritePing() error {
	select {
	case <-s.closed:
		return errStreamClosed
	default:
	}
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

// Close releases the handler goroutine; the HTTP connection itself is closed
// when the handler returns.
func (s *sseStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// wsEnvelope wraps hub events for websocket subscribers.
type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type wsStream struct {
	conn *websocket.Conn
}

func (s *wsStream) WriteEvent(name string, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(wsEnvelope{Event: name, Data: data})
}

func (s *wsStream) WritePing() error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}
