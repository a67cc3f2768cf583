package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hark-stt/hark-core/internal/infrastructure/config"
	"github.com/hark-stt/hark-core/internal/infrastructure/logging"
	"github.com/hark-stt/hark-core/internal/transcript"
)

// WebSocket message types.
const (
	WSTypeFullSentence = "fullSentence"
	WSTypePing         = "ping"
	WSTypePong         = "pong"
	WSTypeError        = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	// A client that falls this far behind starts losing sentences rather
	// than stalling the broadcast.
	wsSendBufferSize = 64
)

// WSSentence is the message pushed to stream clients for each finalised
// sentence. Type and Text mirror the MQTT sentence payload so a consumer
// can switch transports without reparsing; the remaining fields carry the
// entry metadata the HTTP API also exposes.
type WSSentence struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	SessionID  string  `json:"session_id,omitempty"`
	Sequence   uint64  `json:"sequence,omitempty"`
	Language   string  `json:"language,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Timestamp  string  `json:"timestamp,omitempty"`
}

// Hub fans each delivered transcript entry out to connected WebSocket
// clients. It is registered as a transcript pipeline sink, so a Write is
// one broadcast; clients are read-mostly and may only send pings.
type Hub struct {
	cfg     config.WebSocketConfig
	logger  *logging.Logger
	clients map[*WSClient]struct{}
	mu      sync.RWMutex
}

// WSClient represents a connected WebSocket client.
type WSClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// LAN-internal operational surface; no origin restrictions.
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until the context is cancelled, then disconnects all clients.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Name implements transcript.Sink.
func (h *Hub) Name() string { return "websocket" }

// Write implements transcript.Sink: broadcast one entry to every
// connected client. Never returns an error — a slow or gone client is
// skipped, not a sink failure.
func (h *Hub) Write(_ context.Context, entry transcript.Entry) error {
	h.Broadcast(entry)
	return nil
}

// Broadcast pushes one entry to all connected clients as a fullSentence
// message. Slow clients (full send buffer) are skipped.
func (h *Hub) Broadcast(entry transcript.Entry) {
	msg := WSSentence{
		Type:       WSTypeFullSentence,
		Text:       entry.Text,
		SessionID:  entry.SessionID,
		Sequence:   entry.Sequence,
		Language:   entry.Language,
		Confidence: entry.Confidence,
		Timestamp:  entry.CapturedAt.UTC().Format(time.RFC3339),
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal stream message", "error", err)
		return
	}

	// Snapshot the client list under the hub lock, then release before
	// sending so a blocked client cannot hold the lock.
	h.mu.RLock()
	clients := make([]*WSClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.trySend(data)
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", h.ClientCount())
}

// Unregister removes a client from the hub.
// Only the goroutine that successfully removes the client from the map
// closes the send channel, preventing double-close panics during shutdown.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// closeAll disconnects all clients and closes their send channels
// so writePump goroutines can exit cleanly.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// handleStream upgrades the HTTP connection and attaches the client to
// the hub. Every sentence delivered from here on is pushed to it.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:  s.Hub(),
		conn: conn,
		send: make(chan []byte, wsSendBufferSize),
	}

	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads messages from the WebSocket connection. The stream is
// push-only; inbound traffic exists to keep the connection alive, plus a
// JSON ping convenience for clients without protocol-level ping support.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	pongWait := time.Duration(cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps the
		// connection alive even if the client ignores protocol pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(pingInterval + pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	pingInterval := time.Duration(cfg.PingInterval) * time.Second
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	pongWait := time.Duration(cfg.PongTimeout) * time.Second

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg struct {
		Type string `json:"type"`
		ID   string `json:"id,omitempty"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypePing:
		c.sendControl(WSTypePong, msg.ID)
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

// trySend attempts to send data to the client's send channel.
// It silently handles closed channels (client disconnected during
// broadcast) and full buffers (slow client).
func (c *WSClient) trySend(data []byte) {
	defer func() {
		recover() //nolint:errcheck // Absorb send-on-closed-channel panic
	}()

	select {
	case c.send <- data:
	default:
		// Client buffer full, skip
	}
}

// sendControl sends a small non-sentence message to the client.
func (c *WSClient) sendControl(msgType, id string) {
	msg := map[string]string{
		"type":      msgType,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if id != "" {
		msg["id"] = id
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(message string) {
	msg := map[string]string{
		"type":    WSTypeError,
		"message": message,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}
