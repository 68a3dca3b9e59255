// Package broadcast maintains live observer connections and delivers typed
// update events to subscribers of matching (channel, type) pairs.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Conn abstracts a live connection. The websocket transport provides the
// production implementation; tests substitute an in-memory one.
type Conn interface {
	Send(payload []byte) error
	Close()
}

// Message is the typed update envelope pushed to subscribers.
type Message struct {
	Type      string    `json:"type"`
	Channel   string    `json:"channel"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// frame is the on-wire shape: an event name wrapping a payload.
type frame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// client tracks one registered connection and its subscription set, keyed
// "channel:type".
type client struct {
	conn          Conn
	connectedAt   time.Time
	subscriptions map[string]struct{}
}

// ClientInfo is the redacted per-connection view exposed by HealthStatus.
type ClientInfo struct {
	ID            string    `json:"id"`
	ConnectedAt   time.Time `json:"connectedAt"`
	Subscriptions []string  `json:"subscriptions"`
}

// Health reports the hub's operational state.
type Health struct {
	Initialized      bool         `json:"isInitialized"`
	ConnectedClients int          `json:"connectedClients"`
	Clients          []ClientInfo `json:"clients"`
	Timestamp        string       `json:"timestamp"`
}

// Hub is the connection registry. A single mutex serializes all registry and
// subscription mutation.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	closed  bool
	logger  *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// Register adds a connection with an empty subscription set.
func (h *Hub) Register(id string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		conn.Close()
		return
	}
	h.clients[id] = &client{
		conn:          conn,
		connectedAt:   time.Now(),
		subscriptions: make(map[string]struct{}),
	}
	h.logger.Info("client connected", slog.String("client_id", id))
}

// Unregister removes a connection and discards its subscriptions.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		h.logger.Info("client disconnected", slog.String("client_id", id))
	}
}

// Subscribe registers interest in a (channel, type) pair and acknowledges
// back to the connection. Idempotent.
func (h *Hub) Subscribe(id, channel, typ string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		c.subscriptions[channel+":"+typ] = struct{}{}
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	h.send(id, c, frame{Event: "subscription_confirmed", Payload: ack(channel, typ)})
}

// Unsubscribe removes interest in a (channel, type) pair. Idempotent.
func (h *Hub) Unsubscribe(id, channel, typ string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(c.subscriptions, channel+":"+typ)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	h.send(id, c, frame{Event: "unsubscription_confirmed", Payload: ack(channel, typ)})
}

func ack(channel, typ string) map[string]string {
	return map[string]string{
		"channel":   channel,
		"type":      typ,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}

// Pong answers a connection-health ping.
func (h *Hub) Pong(id string) {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.send(id, c, frame{Event: "pong", Payload: map[string]string{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}})
}

// Publish delivers msg only to connections subscribed to
// (channel, msg.Type).
func (h *Hub) Publish(channel string, msg Message) {
	key := channel + ":" + msg.Type
	targets := make(map[string]*client)
	h.mu.RLock()
	for id, c := range h.clients {
		if _, ok := c.subscriptions[key]; ok {
			targets[id] = c
		}
	}
	h.mu.RUnlock()
	for id, c := range targets {
		h.send(id, c, frame{Event: "channel_update", Payload: msg})
	}
}

// PublishGlobal delivers msg to every connection regardless of subscriptions.
func (h *Hub) PublishGlobal(msg Message) {
	for id, c := range h.snapshot() {
		h.send(id, c, frame{Event: "global_update", Payload: msg})
	}
}

// SendDirect unicasts msg to one connection, reporting whether it was found.
func (h *Hub) SendDirect(id string, msg Message) bool {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	h.send(id, c, frame{Event: "direct_message", Payload: msg})
	return true
}

// snapshot copies the registry so delivery never holds the lock across Send.
func (h *Hub) snapshot() map[string]*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]*client, len(h.clients))
	for id, c := range h.clients {
		out[id] = c
	}
	return out
}

// send marshals and delivers a frame, dropping the connection on failure.
func (h *Hub) send(id string, c *client, f frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		h.logger.Error("marshal broadcast frame", slog.String("error", err.Error()))
		return
	}
	if err := c.conn.Send(payload); err != nil {
		h.logger.Warn("dropping unreachable client",
			slog.String("client_id", id),
			slog.String("error", err.Error()))
		c.conn.Close()
		h.Unregister(id)
	}
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HealthStatus reports hub state and the connected clients.
func (h *Hub) HealthStatus() Health {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]ClientInfo, 0, len(h.clients))
	for id, c := range h.clients {
		subs := make([]string, 0, len(c.subscriptions))
		for key := range c.subscriptions {
			subs = append(subs, key)
		}
		clients = append(clients, ClientInfo{
			ID:            id,
			ConnectedAt:   c.connectedAt,
			Subscriptions: subs,
		})
	}
	return Health{
		Initialized:      !h.closed,
		ConnectedClients: len(h.clients),
		Clients:          clients,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
}

// Shutdown closes every connection and clears the registry. Idempotent and
// safe during process termination.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, c := range h.clients {
		c.conn.Close()
	}
	h.clients = make(map[string]*client)
	h.closed = true
	h.logger.Info("broadcast hub shut down")
}

// Typed convenience publishers.

func (h *Hub) BookingUpdate(channel string, data any) {
	h.Publish(channel, Message{Type: "booking_update", Channel: channel, Data: data, Timestamp: time.Now()})
}

func (h *Hub) PropertyUpdate(channel string, data any) {
	h.Publish(channel, Message{Type: "property_update", Channel: channel, Data: data, Timestamp: time.Now()})
}

func (h *Hub) RateUpdate(channel string, data any) {
	h.Publish(channel, Message{Type: "rate_update", Channel: channel, Data: data, Timestamp: time.Now()})
}

func (h *Hub) CalendarUpdate(channel string, data any) {
	h.Publish(channel, Message{Type: "calendar_update", Channel: channel, Data: data, Timestamp: time.Now()})
}

func (h *Hub) WebhookNotification(channel string, data any) {
	h.Publish(channel, Message{Type: "webhook_notification", Channel: channel, Data: data, Timestamp: time.Now()})
}
