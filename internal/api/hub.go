package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/mini-colony/internal/effects"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

// Frame is one published tick on the effect stream.
type Frame struct {
	Tick    uint64           `json:"tick"`
	Effects []effects.Effect `json:"effects"`
}

// Hub fans effect batches out to websocket subscribers. It implements
// effects.Sink; Publish never blocks the simulation, slow subscribers lose
// frames instead.
type Hub struct {
	log        *slog.Logger
	upgrader   websocket.Upgrader
	maxClients int

	mu      sync.Mutex
	subs    map[uint64]*subscriber
	nextID  atomic.Uint64
	dropped atomic.Uint64
	closed  bool
}

type subscriber struct {
	id   uint64
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub accepting at most maxClients subscribers (0 means
// unlimited).
func NewHub(log *slog.Logger, maxClients int) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:        log,
		maxClients: maxClients,
		subs:       make(map[uint64]*subscriber),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Publish encodes the batch once and queues it for every subscriber.
func (h *Hub) Publish(tick uint64, batch []effects.Effect) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) == 0 {
		return
	}
	msg, err := json.Marshal(Frame{Tick: tick, Effects: batch})
	if err != nil {
		h.log.Error("encode effect frame", "tick", tick, "error", err)
		return
	}
	for _, s := range h.subs {
		select {
		case s.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Dropped returns how many frames were discarded for slow subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.subs {
		close(s.send)
		delete(h.subs, id)
	}
}

func (h *Hub) register(conn *websocket.Conn) (*subscriber, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || (h.maxClients > 0 && len(h.subs) >= h.maxClients) {
		return nil, false
	}
	s := &subscriber{id: h.nextID.Add(1), conn: conn, send: make(chan []byte, sendBuffer)}
	h.subs[s.id] = s
	return s, true
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.id]; ok {
		delete(h.subs, s.id)
		close(s.send)
	}
}

// ServeHTTP upgrades the request and streams frames until the client goes
// away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s, ok := h.register(conn)
	if !ok {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many subscribers"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}
	h.log.Info("stream subscriber connected", "id", s.id, "remote", r.RemoteAddr)

	go h.writeLoop(s)

	// Read loop only services control frames and detects disconnects.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister(s)
	h.log.Info("stream subscriber disconnected", "id", s.id)
}

func (h *Hub) writeLoop(s *subscriber) {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
