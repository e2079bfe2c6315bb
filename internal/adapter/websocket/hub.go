package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-playground/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Hub fans voice snapshots out to every connected /ws/voice client.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound snapshots, already encoded.
	broadcast chan []byte

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	mu  sync.RWMutex
	log *zap.Logger
}

type Client struct {
	hub *Hub
	// The websocket connection.
	conn *websocket.Conn
	// Buffered channel of outbound messages.
	send chan []byte
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run dispatches until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow reader; drop it rather than stall the voice loop.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues a snapshot for every client. It never blocks; when the
// hub is saturated the snapshot is dropped.
func (h *Hub) Publish(snap domain.VoiceSnapshot) {
	message, err := json.Marshal(snap)
	if err != nil {
		h.log.Error("Failed to encode voice snapshot", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.log.Warn("Voice snapshot dropped, hub saturated")
	}
}

// ClientCount reports the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve registers conn, sends initial first, and blocks until the peer
// disconnects. The fiber websocket handler must not return earlier or the
// connection is closed under the pumps.
func (h *Hub) Serve(conn *websocket.Conn, initial domain.VoiceSnapshot) {
	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if message, err := json.Marshal(initial); err == nil {
		client.send <- message
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		// Push only; reading keeps control frames flowing and detects close.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	defer func() {
		c.conn.Close()
	}()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	// The hub closed the channel.
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
