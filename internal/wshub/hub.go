package wshub

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/coder/websocket"

	"arcade/internal/events"
	"arcade/internal/utility"
)

// ClientMessage is the JSON structure received from clients.
// {"t":"watch","g":"memory-grid"} limits the feed to one game; an empty g watches all.
type ClientMessage struct {
	Type   string `json:"t"`
	GameID string `json:"g,omitempty"`
}

// ServerMessage is the JSON structure sent to clients.
type ServerMessage struct {
	Type       string `json:"t"`
	PlayerID   string `json:"id,omitempty"`
	Name       string `json:"n,omitempty"`
	Color      string `json:"c,omitempty"`
	GameID     string `json:"g,omitempty"`
	Score      int    `json:"s,omitempty"`
	Difficulty string `json:"d,omitempty"`
	Viewers    int    `json:"v"`
}

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	mu     sync.RWMutex
	gameID string
}

// Watch restricts the client to events for gameID. Empty means all games.
func (c *Client) Watch(gameID string) {
	c.mu.Lock()
	c.gameID = gameID
	c.mu.Unlock()
}

func (c *Client) wants(gameID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gameID == "" || gameID == "" || c.gameID == gameID
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// ReadPump applies watch requests until the connection fails or ctx ends.
func (c *Client) ReadPump(ctx context.Context) {
	for {
		_, data, err := c.Conn.Read(ctx)
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "watch" {
			c.Watch(msg.GameID)
		}
	}
}

// Hub tracks live-feed WebSocket connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
	}
}

// Register adds a client to the hub and announces the new viewer count.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.Broadcast(ServerMessage{Type: "viewers", Viewers: n})
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		close(c.Send)
		delete(h.clients, id)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.Broadcast(ServerMessage{Type: "viewers", Viewers: n})
	}
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client watching msg.GameID. Non-blocking: drops if channel full.
func (h *Hub) Broadcast(msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[WSHub] Marshal error: %v\n", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		if !c.wants(msg.GameID) {
			continue
		}
		select {
		case c.Send <- data:
		default:
			// Drop message if channel full
		}
	}
}

// PublishRun pushes a stored run to the live feed.
func (h *Hub) PublishRun(ev events.RunRecorded) {
	var handle *string
	if ev.Handle != "" {
		handle = &ev.Handle
	}
	name := utility.DisplayName(ev.PlayerID, handle)
	h.Broadcast(ServerMessage{
		Type:       "run",
		PlayerID:   ev.PlayerID,
		Name:       name,
		Color:      utility.NewAvatar(name).Color,
		GameID:     ev.GameID,
		Score:      ev.NormalizedScore,
		Difficulty: ev.Difficulty,
	})
}
