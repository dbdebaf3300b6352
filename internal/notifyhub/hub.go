// Package notifyhub fans GATT notifications out to websocket clients.
package notifyhub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/srg/bgatt/internal/bgapi"
	"github.com/srg/bgatt/internal/device"
	"github.com/srg/bgatt/internal/groutine"
)

// Event is one notification as sent to clients.
type Event struct {
	Connection uint8     `json:"connection"`
	Handle     uint16    `json:"handle"`
	UUID       string    `json:"uuid,omitempty"`
	Type       string    `json:"type"`
	Value      string    `json:"value"` // upper case hex
	Timestamp  time.Time `json:"timestamp"`
}

// NewEvent converts a notification. uuid may be empty.
func NewEvent(n device.Notification, uuid string) Event {
	return Event{
		Connection: n.Connection,
		Handle:     n.Handle,
		UUID:       uuid,
		Type:       valueType(n.Type),
		Value:      fmt.Sprintf("%X", n.Value),
		Timestamp:  time.Now(),
	}
}

func valueType(t byte) string {
	switch t {
	case bgapi.AttValueNotify:
		return "notify"
	case bgapi.AttValueIndicate, bgapi.AttValueIndicateRspReq:
		return "indicate"
	default:
		return "read"
	}
}

// Hub keeps the connected clients. It is an http.Handler that upgrades every request.
type Hub struct {
	clients      map[*websocket.Conn]bool
	mu           sync.Mutex
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	logger       *logrus.Logger
}

// New returns an empty hub
func New(logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.New()
	}
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		writeTimeout: 100 * time.Millisecond,
		logger:       logger,
	}
}

// ServeHTTP upgrades the request and registers the client until it goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to upgrade connection")
		return
	}
	h.AddClient(conn)

	// clients only listen; reading is how a close is noticed
	groutine.Go(r.Context(), "ws-client-reader", func(ctx context.Context) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.RemoveClient(conn)
				return
			}
		}
	})
}

func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	h.logger.WithField("remote", conn.RemoteAddr().String()).Info("Websocket client connected")
}

func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
		h.logger.WithField("remote", conn.RemoteAddr().String()).Info("Websocket client disconnected")
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends evt to every client and drops the ones that fail. It returns how many
// clients received it.
func (h *Hub) Broadcast(evt Event) int {
	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	var failedMu sync.Mutex
	var failed []*websocket.Conn

	for _, conn := range clients {
		wg.Add(1)
		go func(c *websocket.Conn) {
			defer wg.Done()
			_ = c.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.WriteJSON(evt); err != nil {
				failedMu.Lock()
				failed = append(failed, c)
				failedMu.Unlock()
			}
		}(conn)
	}
	wg.Wait()

	for _, c := range failed {
		h.RemoveClient(c)
	}
	return len(clients) - len(failed)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(h.writeTimeout))
		_ = conn.Close()
		delete(h.clients, conn)
	}
}

// NotificationSource is what Relay polls; device.Central satisfies it.
type NotificationSource interface {
	ReceiveNotification(ctx context.Context) (device.Notification, error)
}

// Relay polls src until ctx ends or src fails, calling emit for every notification.
// Poll timeouts and stray events are not errors.
func Relay(ctx context.Context, src NotificationSource, emit func(device.Notification)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := src.ReceiveNotification(ctx)
		switch {
		case errors.Is(err, device.ErrNoNotification), errors.Is(err, device.ErrUnexpectedEvent):
			continue
		case err != nil:
			return err
		}
		emit(n)
	}
}
