// Package realtime tells open boards of a project that its data changed.
package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 64 * 1024

	sendBuffer = 256
)

// Event types published by the API.
const (
	TaskMoved      = "task_moved"
	TaskCreated    = "task_created"
	TaskUpdated    = "task_updated"
	TaskDeleted    = "task_deleted"
	ProjectUpdated = "project_updated"
	ProjectDeleted = "project_deleted"
	ColumnColor    = "column_color"
)

// Event is the message format on the wire.
type Event struct {
	Type      string `json:"type"`
	ProjectID string `json:"project_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	User      string `json:"user,omitempty"`
}

// envelope goes to every client of projectID, or only to client when set.
type envelope struct {
	projectID string
	client    *Client
	payload   []byte
}

// Client is one websocket connection subscribed to a project.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	projectID string
	user      string
}

// Hub keeps the clients of every project and fans events out to them.
type Hub struct {
	logger     *slog.Logger
	upgrader   websocket.Upgrader
	rooms      map[string]map[*Client]struct{}
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

// NewHub returns a hub. Run must be started before clients connect.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS layer in front of the API.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		rooms:      make(map[string]map[*Client]struct{}),
		broadcast:  make(chan envelope, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for _, room := range h.rooms {
			for c := range room {
				close(c.send)
			}
		}
		h.rooms = map[string]map[*Client]struct{}{}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			room, ok := h.rooms[c.projectID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[c.projectID] = room
			}
			room[c] = struct{}{}
			h.logger.Debug("client connected", "project", c.projectID, "user", c.user)
		case c := <-h.unregister:
			h.drop(c)
		case msg := <-h.broadcast:
			if msg.client != nil {
				if _, ok := h.rooms[msg.client.projectID][msg.client]; ok {
					select {
					case msg.client.send <- msg.payload:
					default:
					}
				}
				continue
			}
			for c := range h.rooms[msg.projectID] {
				select {
				case c.send <- msg.payload:
				default:
					h.logger.Warn("client send buffer full, removing client", "project", c.projectID, "user", c.user)
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	room := h.rooms[c.projectID]
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.send)
	if len(room) == 0 {
		delete(h.rooms, c.projectID)
	}
	h.logger.Debug("client disconnected", "project", c.projectID, "user", c.user)
}

// Publish sends ev to every client of projectID. It is a no-op once the hub has stopped.
func (h *Hub) Publish(projectID string, ev Event) {
	ev.ProjectID = projectID
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("error marshalling event", "type", ev.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- envelope{projectID: projectID, payload: payload}:
	case <-h.done:
	}
}

// Serve upgrades the request and subscribes the connection to projectID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, projectID, user string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), projectID: projectID, user: user}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil
	}

	go c.writePump()
	go c.readPump()
	return nil
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket error", "project", c.projectID, "error", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil {
			c.hub.logger.Debug("error unmarshalling websocket message", "error", err)
			continue
		}
		// Clients only ping; board changes go through the HTTP API.
		if ev.Type != "ping" {
			continue
		}
		pong, err := json.Marshal(Event{
			Type: "pong",
			Data: map[string]string{"timestamp": time.Now().UTC().Format(time.RFC3339)},
		})
		if err != nil {
			continue
		}
		select {
		case c.hub.broadcast <- envelope{client: c, payload: pong}:
		case <-c.hub.done:
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
