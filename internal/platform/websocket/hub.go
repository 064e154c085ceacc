// Package websocket pushes order lifecycle events to connected ward
// dashboards so open timelines can drop completed and deleted treatments
// without polling.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ward/ward/internal/platform/auth"
	"github.com/ward/ward/internal/platform/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one dashboard connection. A client with no topics receives
// every event; otherwise only events whose order type is in Topics.
type Client struct {
	ID     string
	UserID string
	Topics []string
	Send   chan []byte
	hub    *Hub
}

// Hub fans events out to subscribed clients. It satisfies events.Publisher
// so the order service can publish to it alongside Kafka.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	topics  map[string]map[*Client]bool
	logger  zerolog.Logger
	now     func() time.Time
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		topics:  make(map[string]map[*Client]bool),
		logger:  logger.With().Str("component", "websocket").Logger(),
		now:     time.Now,
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	for _, topic := range client.Topics {
		h.addTopicLocked(client, topic)
	}
}

// Unregister removes the client and closes its send channel. It is safe to
// call more than once.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	for _, topic := range client.Topics {
		h.removeTopicLocked(client, topic)
	}
	close(client.Send)
}

// Subscribe adds topics to a registered client.
func (h *Hub) Subscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		if containsTopic(client.Topics, topic) {
			continue
		}
		client.Topics = append(client.Topics, topic)
		h.addTopicLocked(client, topic)
	}
}

// Unsubscribe removes topics from a registered client.
func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range topics {
		kept := client.Topics[:0]
		for _, t := range client.Topics {
			if t != topic {
				kept = append(kept, t)
			}
		}
		client.Topics = kept
		h.removeTopicLocked(client, topic)
	}
}

func (h *Hub) addTopicLocked(client *Client, topic string) {
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][client] = true
}

func (h *Hub) removeTopicLocked(client *Client, topic string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Broadcast sends message to clients subscribed to topic and to clients
// without subscriptions. Slow clients whose buffer is full miss the message.
func (h *Hub) Broadcast(topic string, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.clients {
		if len(client.Topics) > 0 && !h.topics[topic][client] {
			continue
		}
		select {
		case client.Send <- message:
			delivered++
		default:
			h.logger.Warn().Str("client_id", client.ID).Str("topic", topic).Msg("send buffer full, dropping event")
		}
	}
	return delivered
}

// deliver sends message to one client if it is still registered.
func (h *Hub) deliver(client *Client, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[client] {
		return false
	}
	select {
	case client.Send <- message:
		return true
	default:
		return false
	}
}

// Publish wraps the event in the same envelope the Kafka publisher uses and
// broadcasts it on the order type topic.
func (h *Hub) Publish(_ context.Context, eventType string, data map[string]interface{}) error {
	event := events.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    events.Source,
		Data:      data,
		Timestamp: h.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	topic, _ := data["order_type"].(string)
	n := h.Broadcast(topic, payload)
	h.logger.Debug().Str("event_type", eventType).Str("topic", topic).Int("clients", n).Msg("event broadcast")
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]bool)
	h.topics = make(map[string]map[*Client]bool)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func containsTopic(topics []string, topic string) bool {
	for _, t := range topics {
		if t == topic {
			return true
		}
	}
	return false
}

// ClientMessage is sent by dashboards to change their subscriptions.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// ServerMessage acknowledges subscription changes or reports an error.
type ServerMessage struct {
	Type   string   `json:"type"`
	Topics []string `json:"topics,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// validTopics are the order types events are broadcast on.
var validTopics = map[string]bool{
	"medication":    true,
	"procedure":     true,
	"investigation": true,
}

// ProcessMessage applies a client message and returns the reply to send.
func (h *Hub) ProcessMessage(client *Client, raw []byte) ServerMessage {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ServerMessage{Type: "error", Error: "invalid message"}
	}
	for _, topic := range msg.Topics {
		if !validTopics[topic] {
			return ServerMessage{Type: "error", Error: fmt.Sprintf("unknown topic %q", topic)}
		}
	}

	switch msg.Action {
	case "subscribe":
		h.Subscribe(client, msg.Topics)
		return ServerMessage{Type: "subscribed", Topics: msg.Topics}
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
		return ServerMessage{Type: "unsubscribed", Topics: msg.Topics}
	default:
		return ServerMessage{Type: "error", Error: fmt.Sprintf("unknown action %q", msg.Action)}
	}
}

// Handler upgrades authenticated requests to websocket connections.
type Handler struct {
	hub      *Hub
	upgrader gorillaws.Upgrader
	logger   zerolog.Logger
}

// NewHandler accepts connections whose Origin is empty or in origins. A "*"
// entry allows any origin.
func NewHandler(hub *Hub, origins []string, logger zerolog.Logger) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handler{
		hub: hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		logger: logger.With().Str("component", "websocket").Logger(),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws/orders", h.Connect, auth.RequireRole(auth.RoleDoctor, auth.RoleNurse))
}

// Connect upgrades the request. Initial topics may be given as repeated
// ?topic= parameters.
func (h *Handler) Connect(c echo.Context) error {
	topics := c.QueryParams()["topic"]
	for _, topic := range topics {
		if !validTopics[topic] {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown topic %q", topic))
		}
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	client := &Client{
		ID:     uuid.New().String(),
		UserID: auth.UserIDFromContext(c.Request().Context()),
		Topics: append([]string(nil), topics...),
		Send:   make(chan []byte, sendBuffer),
		hub:    h.hub,
	}
	h.hub.Register(client)
	h.logger.Info().Str("client_id", client.ID).Str("user_id", client.UserID).Strs("topics", topics).Msg("client connected")

	go h.writePump(conn, client)
	h.readPump(conn, client)
	return nil
}

func (h *Handler) readPump(conn *gorillaws.Conn, client *Client) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
		h.logger.Info().Str("client_id", client.ID).Msg("client disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if gorillaws.IsUnexpectedCloseError(err, gorillaws.CloseGoingAway, gorillaws.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("client_id", client.ID).Msg("unexpected close")
			}
			return
		}
		reply, err := json.Marshal(h.hub.ProcessMessage(client, raw))
		if err != nil {
			continue
		}
		h.hub.deliver(client, reply)
	}
}

func (h *Handler) writePump(conn *gorillaws.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(gorillaws.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(gorillaws.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gorillaws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
