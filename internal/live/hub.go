// Package live fans check-in activity out to organizers watching an
// event over WebSocket.
package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub keeps the open feed connections per event.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *zerolog.Logger
}

func NewHub(log *zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// Broadcast queues msg for every connection watching eventID. Connections
// whose buffer is full miss the message.
func (h *Hub) Broadcast(eventID string, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[eventID] {
		select {
		case c.send <- msg:
		default:
			h.log.Warn().Str("event_id", eventID).Msg("live feed client too slow, message dropped")
		}
	}
}

// Subscribers returns the number of open connections for eventID.
func (h *Hub) Subscribers(eventID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[eventID])
}

// Serve upgrades the request and streams eventID's messages until the
// peer goes away. Authorization happens before Serve is called.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, eventID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{conn: conn, send: make(chan Message, sendBuffer)}
	h.add(eventID, c)
	h.log.Info().Str("event_id", eventID).Msg("live feed connected")

	c.send <- Message{Type: "connected", Data: map[string]string{"event_id": eventID}}

	go h.writePump(c)
	h.readPump(c)

	h.remove(eventID, c)
	h.log.Info().Str("event_id", eventID).Msg("live feed disconnected")
	return nil
}

func (h *Hub) add(eventID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[eventID] == nil {
		h.clients[eventID] = make(map[*client]struct{})
	}
	h.clients[eventID][c] = struct{}{}
}

func (h *Hub) remove(eventID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[eventID][c]; !ok {
		return
	}
	delete(h.clients[eventID], c)
	if len(h.clients[eventID]) == 0 {
		delete(h.clients, eventID)
	}
	close(c.send)
}

// readPump only drains control frames; the feed is one-way.
func (h *Hub) readPump(c *client) {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
