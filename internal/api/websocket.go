package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/config"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/logging"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/receiver"
)

// Frame types on the /ws feed.
const (
	FrameEvent  = "event"
	FramePing   = "ping"
	FramePong   = "pong"
	FrameReplay = "replay"
	FrameError  = "error"

	// feedBufferSize is the per-client outbound frame buffer.
	feedBufferSize = 64

	defaultPingInterval   = 30
	defaultPongTimeout    = 10
	defaultMaxMessageSize = 8192
)

// replayOrder is the order cached events are sent to a client on connect.
var replayOrder = []receiver.EventType{
	receiver.EventPower,
	receiver.EventProfile,
	receiver.EventInput,
	receiver.EventVolume,
	receiver.EventSubwoofer,
}

// Frame is one message on the feed. Clients send ping and replay frames;
// the server sends event, pong and error frames.
type Frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Seq     uint64          `json:"seq,omitempty"`
	Replay  bool            `json:"replay,omitempty"`
	Event   *receiver.Event `json:"event,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Hub fans receiver change events out to WebSocket clients.
//
// It keeps the latest event of each type, so a client that connects (or
// asks for a replay) sees the current receiver state without polling.
// A client whose buffer fills is disconnected and catches up from the
// replay when it reconnects.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.Mutex
	clients map[*feedClient]struct{}
	latest  map[receiver.EventType]receiver.Event
	seq     uint64
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// enqueue queues data without blocking. It reports false when the buffer is
// full.
func (c *feedClient) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *feedClient) close() {
	c.once.Do(func() { close(c.done) })
}

// NewHub creates a Hub. Unset timing and size limits take their defaults.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*feedClient]struct{}),
		latest:  make(map[receiver.EventType]receiver.Event),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.close()
		delete(h.clients, c)
	}
}

// Publish records ev as the latest of its type and sends it to every
// connected client.
func (h *Hub) Publish(ev receiver.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	h.latest[ev.Type] = ev

	data, err := json.Marshal(Frame{Type: FrameEvent, ID: uuid.NewString(), Seq: h.seq, Event: &ev})
	if err != nil {
		h.logger.Error("failed to marshal feed event", "error", err)
		return
	}

	for c := range h.clients {
		if !c.enqueue(data) {
			h.logger.Warn("websocket client too slow, disconnecting", "event", ev.Type)
			c.close()
			delete(h.clients, c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// register adds c and queues the cached state for it under the same lock
// as Publish, so the client sees neither a gap nor a duplicate.
func (h *Hub) register(c *feedClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.replayLocked(c)
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "clients", n)
}

func (h *Hub) unregister(c *feedClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

func (h *Hub) replayLocked(c *feedClient) {
	for _, t := range replayOrder {
		ev, ok := h.latest[t]
		if !ok {
			continue
		}
		data, err := json.Marshal(Frame{Type: FrameEvent, ID: uuid.NewString(), Seq: h.seq, Replay: true, Event: &ev})
		if err != nil {
			continue
		}
		c.enqueue(data)
	}
}

func (h *Hub) reply(c *feedClient, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	c.enqueue(data)
}

// handleFrame answers a frame sent by the client.
func (h *Hub) handleFrame(c *feedClient, data []byte) {
	var in Frame
	if err := json.Unmarshal(data, &in); err != nil {
		h.reply(c, Frame{Type: FrameError, Message: "invalid JSON frame"})
		return
	}

	switch in.Type {
	case FramePing:
		h.reply(c, Frame{Type: FramePong, ID: in.ID})
	case FrameReplay:
		h.mu.Lock()
		h.replayLocked(c)
		h.mu.Unlock()
	default:
		h.reply(c, Frame{Type: FrameError, ID: in.ID, Message: "unknown frame type: " + in.Type})
	}
}

func (h *Hub) readPump(c *feedClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	wait := time.Duration(h.cfg.PingInterval+h.cfg.PongTimeout) * time.Second
	c.conn.SetReadLimit(int64(h.cfg.MaxMessageSize))
	//nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		//nolint:errcheck // a failed deadline surfaces as a read error
		c.conn.SetReadDeadline(time.Now().Add(wait))
		h.handleFrame(c, data)
	}
}

func (h *Hub) writePump(c *feedClient) {
	ticker := time.NewTicker(time.Duration(h.cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(h.cfg.PongTimeout) * time.Second
	for {
		select {
		case <-c.done:
			//nolint:errcheck // connection is closing anyway
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case data := <-c.send:
			//nolint:errcheck // a failed deadline surfaces as a write error
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // a failed deadline surfaces as a write error
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocket upgrades the request and attaches the client to the feed.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.isAllowedOrigin(origin)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &feedClient{
		conn: conn,
		send: make(chan []byte, feedBufferSize),
		done: make(chan struct{}),
	}
	s.hub.register(c)

	go s.hub.writePump(c)
	go s.hub.readPump(c)
}
