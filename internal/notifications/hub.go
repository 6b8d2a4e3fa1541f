package notifications

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"schoolboard/internal/events"
	"schoolboard/internal/middleware"
	"schoolboard/internal/observability"

	"github.com/goccy/go-json"
	"github.com/gofiber/websocket/v2"
)

const (
	hubName = "board"
	// Max total connections
	maxTotalConns = 10000
)

// ErrHubFull is returned by Register when the connection limit is reached.
var ErrHubFull = errors.New("server connection limit reached")

// BoardHub holds the websocket clients watching the board and broadcasts
// board events to all of them.
type BoardHub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	closed  bool
}

// NewBoardHub creates an empty hub.
func NewBoardHub() *BoardHub {
	return &BoardHub{clients: make(map[*Client]struct{})}
}

// Register adds a connection. conn may be nil in tests.
func (h *BoardHub) Register(viewerID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || len(h.clients) >= maxTotalConns {
		return nil, ErrHubFull
	}
	c := newClient(h, conn, viewerID)
	h.clients[c] = struct{}{}
	observability.WebSocketConnectionsTotal.Inc()
	return c, nil
}

// Unregister removes the client and closes its send queue. It is safe to call twice.
func (h *BoardHub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
		observability.WebSocketConnectionsTotal.Dec()
	}
}

// Count returns the number of connected clients.
func (h *BoardHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll sends message to every connected websocket client.
func (h *BoardHub) BroadcastAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.TrySend(message)
	}
}

// Publish broadcasts the event to this instance's clients. It is the sink
// used when no Redis fan-out is configured.
func (h *BoardHub) Publish(_ context.Context, event events.BoardEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.BroadcastAll(payload)
	return nil
}

// StartWiring forwards every event the Notifier receives to this hub.
func (h *BoardHub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartBoardSubscriber(ctx, func(payload string) {
		h.BroadcastAll([]byte(payload))
	})
}

// Shutdown sends a close frame to every client and drops them.
func (h *BoardHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		if c.Conn != nil {
			if err := c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				middleware.Logger.Debug("Failed to write close message", slog.String("error", err.Error()))
			}
			_ = c.Conn.Close()
		}
		delete(h.clients, c)
		close(c.Send)
		observability.WebSocketConnectionsTotal.Dec()
	}
	return nil
}
