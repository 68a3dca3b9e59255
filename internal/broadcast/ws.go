package broadcast

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wsConn wraps a gorilla connection. Writes are serialized; gorilla allows at
// most one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  *slog.Logger
}

func (c *wsConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Warn("websocket send failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

func (c *wsConn) Close() {
	_ = c.conn.Close()
}

// clientCommand is the inbound control message from an observer.
type clientCommand struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	Type    string `json:"type"`
}

// WSHandler upgrades HTTP connections and bridges them onto a Hub.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates the websocket entry point for the hub.
func NewWSHandler(hub *Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The gateway simulates third-party APIs; any origin may observe.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP registers the connection and runs its read loop, dispatching
// subscribe/unsubscribe/ping commands until the peer goes away.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	id := uuid.NewString()
	h.hub.Register(id, &wsConn{conn: conn, log: h.logger})
	defer h.hub.Unregister(id)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			h.logger.Debug("ignoring malformed client command",
				slog.String("client_id", id))
			continue
		}
		switch cmd.Action {
		case "subscribe":
			h.hub.Subscribe(id, cmd.Channel, cmd.Type)
		case "unsubscribe":
			h.hub.Unsubscribe(id, cmd.Channel, cmd.Type)
		case "ping":
			h.hub.Pong(id)
		}
	}
}
