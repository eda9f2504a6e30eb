package parcels

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"land-portal/parcel-portal/parcel-portal-backend/internal/intake"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// MessageType identifies a websocket message
type MessageType string

const (
	MessageTypeSubmissionStatus MessageType = "submission_status"
)

// Message is sent to every connected client
type Message struct {
	Type      MessageType   `json:"type"`
	Data      intake.Status `json:"data"`
	Timestamp time.Time     `json:"timestamp"`
}

// Client is one websocket subscriber
type Client struct {
	ID   string
	conn *websocket.Conn
	send chan Message
}

// Hub fans submission status out to websocket clients
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once

	mu    sync.RWMutex
	count int

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a hub and starts its loop
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With(zap.String("component", "progress_hub")),
	}
	go h.run()
	return h
}

// ServeWS upgrades the request and subscribes the client. initial is sent
// first so a late subscriber sees the current state.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial Message) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	client := &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan Message, 64),
	}
	client.send <- initial

	select {
	case h.register <- client:
	case <-h.stop:
		conn.Close()
		return fmt.Errorf("hub stopped")
	}

	go h.writePump(client)
	go h.readPump(client)
	return nil
}

// Publish queues status for every client. A full queue drops the message.
func (h *Hub) Publish(status intake.Status) {
	msg := Message{Type: MessageTypeSubmissionStatus, Data: status, Timestamp: time.Now()}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast channel full, dropping message", zap.String("state", status.State))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Stop closes every client and ends the hub loop
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.setCount(len(h.clients))
			h.logger.Debug("Client registered", zap.String("client_id", client.ID))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.setCount(len(h.clients))
				h.logger.Debug("Client unregistered", zap.String("client_id", client.ID))
			}

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.setCount(len(h.clients))

		case <-h.stop:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.setCount(0)
			return
		}
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// readPump discards client input and detects disconnects
func (h *Hub) readPump(client *Client) {
	defer func() {
		select {
		case h.unregister <- client:
		case <-h.stop:
		}
		client.conn.Close()
	}()

	client.conn.SetReadLimit(512)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("Websocket read failed", zap.String("client_id", client.ID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
