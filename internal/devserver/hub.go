package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"chaosclash/internal/app"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

type wsClient struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// Hub fans match events out to WebSocket subscribers. Private events only
// reach the clients registered for their recipients.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{} // match id -> subscribers
	gauge   prometheus.Gauge
	logger  *slog.Logger
}

// NewHub creates an empty hub. gauge tracks connected clients.
func NewHub(gauge prometheus.Gauge, logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*wsClient]struct{}),
		gauge:   gauge,
		logger:  logger,
	}
}

// Publish sends each event to the match's subscribers.
func (h *Hub) Publish(matchID string, events []app.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := h.clients[matchID]
	if len(subs) == 0 {
		return
	}
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.Error("marshal event failed", "kind", ev.Kind, "err", err)
			continue
		}
		for c := range subs {
			if len(ev.Recipients) > 0 && !slices.Contains(ev.Recipients, c.userID) {
				continue
			}
			select {
			case c.send <- data:
			default:
				// Drop if buffer full so a slow client never blocks the match.
				h.logger.Warn("ws client too slow, dropping event", "match_id", matchID, "user_id", c.userID)
			}
		}
	}
}

func (h *Hub) register(matchID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[matchID] == nil {
		h.clients[matchID] = make(map[*wsClient]struct{})
	}
	h.clients[matchID][c] = struct{}{}
	h.gauge.Inc()
}

func (h *Hub) unregister(matchID string, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.clients[matchID]
	if _, ok := subs[c]; !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.clients, matchID)
	}
	close(c.send)
	h.gauge.Dec()
}

// Subscribers is the number of clients watching matchID.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[matchID])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// serveWS upgrades GET /api/v1/matches/{matchID}/ws?user_id=...
func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request, matchID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "err", err)
		return
	}

	c := &wsClient{conn: conn, userID: r.URL.Query().Get("user_id"), send: make(chan []byte, sendBuffer)}
	h.register(matchID, c)
	h.logger.Info("ws client connected", "match_id", matchID, "user_id", c.userID)

	go h.writePump(c)

	// Read pump: keep connection alive and detect disconnects.
	go func() {
		defer h.unregister(matchID, c)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func matchIDParam(r *http.Request) string {
	return chi.URLParam(r, "matchID")
}
