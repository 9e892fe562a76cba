package ops

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/waypost/waypost/api/types/v1alpha1"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10
)

// batchNotice is the live-tail document sent for every delivered batch.
type batchNotice struct {
	BatchID   string                 `json:"batchId"`
	Category  v1alpha1.Category      `json:"category"`
	Events    int                    `json:"events"`
	Metadata  v1alpha1.BatchMetadata `json:"metadata"`
	Delivered time.Time              `json:"delivered"`
}

// connection pumps hub messages to one websocket client.
type connection struct {
	ws     *websocket.Conn
	send   chan []byte
	hub    *Hub
	logger *slog.Logger
}

func (c *connection) cleanup() {
	c.hub.unregister <- c
	if err := c.ws.Close(); err != nil {
		c.logger.Debug("error closing websocket connection", "error", err)
	}
}

// readPump discards client messages; the live tail is one-directional. It
// exists to notice closes and keep pong deadlines fresh.
func (c *connection) readPump() {
	defer c.cleanup()

	c.ws.SetReadLimit(512)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", "error", err)
			}
			return
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub fans delivered-batch notices out to connected live-tail clients.
type Hub struct {
	register   chan *connection
	unregister chan *connection
	broadcast  chan []byte
	conns      map[*connection]struct{}
	done       chan struct{}
	logger     *slog.Logger
}

// NewHub creates a live-tail hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *connection),
		unregister: make(chan *connection),
		broadcast:  make(chan []byte, 16),
		conns:      make(map[*connection]struct{}),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for c := range h.conns {
				close(c.send)
				delete(h.conns, c)
			}
			return
		case c := <-h.register:
			h.conns[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.conns[c]; ok {
				delete(h.conns, c)
				close(c.send)
			}
		case message := <-h.broadcast:
			for c := range h.conns {
				select {
				case c.send <- message:
				default:
					// Slow client; drop it rather than block the hub.
					delete(h.conns, c)
					close(c.send)
				}
			}
		}
	}
}

// Stop terminates the hub loop and closes all client connections.
func (h *Hub) Stop() {
	close(h.done)
}

// PublishBatch queues a delivered-batch notice for broadcast. It never
// blocks: with no listeners or a full buffer the notice is dropped.
func (h *Hub) PublishBatch(batch v1alpha1.EventBatch) {
	notice, err := json.Marshal(batchNotice{
		BatchID:   batch.ID.String(),
		Category:  batch.Category,
		Events:    batch.Len(),
		Metadata:  batch.Metadata,
		Delivered: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("failed to encode batch notice", "error", err)
		return
	}

	select {
	case h.broadcast <- notice:
	case <-h.done:
	default:
	}
}
