package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/common"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is the envelope for every outbound WebSocket frame.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// wsClient is one connected socket. Gorilla connections do not allow
// concurrent writes, so every client carries its own write mutex.
type wsClient struct {
	conn   *websocket.Conn
	userID string
	mu     sync.Mutex
}

// WebSocketHandler delivers run progress to all connected clients and
// per-user notifications to that user's connections only. It implements
// interfaces.UserNotifier for the notification fan-out.
type WebSocketHandler struct {
	logger           arbor.ILogger
	eventService     interfaces.EventService
	mu               sync.RWMutex
	clients          map[*wsClient]bool
	rooms            map[string]map[*wsClient]bool // userID -> connections
	progressThrottle *rate.Limiter
	serverInstanceID string // clients use this to detect server restart
}

func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		eventService:     eventService,
		clients:          make(map[*wsClient]bool),
		rooms:            make(map[string]map[*wsClient]bool),
		serverInstanceID: uuid.New().String(),
	}

	if config != nil && config.ProgressThrottle != "" {
		if interval, err := time.ParseDuration(config.ProgressThrottle); err == nil {
			h.progressThrottle = rate.NewLimiter(rate.Every(interval), 1)
			logger.Debug().
				Str("interval", config.ProgressThrottle).
				Msg("Throttler initialized for run progress events")
		} else {
			logger.Warn().
				Err(err).
				Str("interval", config.ProgressThrottle).
				Msg("Failed to parse progress throttle interval - throttler disabled")
		}
	}

	if eventService != nil {
		h.subscribeToRunEvents()
	}

	return h
}

// HandleWebSocket upgrades the connection and registers it. The user_id
// query parameter joins the connection to that user's notification room;
// without it the client still receives broadcast run events.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &wsClient{
		conn:   conn,
		userID: r.URL.Query().Get("user_id"),
	}

	h.mu.Lock()
	h.clients[client] = true
	if client.userID != "" {
		if h.rooms[client.userID] == nil {
			h.rooms[client.userID] = make(map[*wsClient]bool)
		}
		h.rooms[client.userID][client] = true
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().
		Str("user_id", client.userID).
		Msgf("WebSocket client connected (total: %d)", total)

	h.sendTo(client, WSMessage{
		Type: "connected",
		Payload: map[string]string{
			"server_instance_id": h.serverInstanceID,
		},
	})

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		if client.userID != "" {
			delete(h.rooms[client.userID], client)
			if len(h.rooms[client.userID]) == 0 {
				delete(h.rooms, client.userID)
			}
		}
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("WebSocket client disconnected (remaining: %d)", remaining)
	}()

	// Read messages from client (keep connection alive)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// EmitToUser sends one event to every connection in the user's room. A user
// with no open connections is not an error; the notification is already
// persisted and will be fetched over REST.
func (h *WebSocketHandler) EmitToUser(userID string, event string, payload interface{}) error {
	msg := WSMessage{Type: event, Payload: payload}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", event, err)
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.rooms[userID]))
	for client := range h.rooms[userID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to send event to client")
		}
	}
	return nil
}

// Broadcast sends one message to every connected client.
func (h *WebSocketHandler) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal broadcast message")
		return
	}

	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Msg("Failed to send broadcast to client")
		}
	}
}

func (h *WebSocketHandler) sendTo(client *wsClient, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal message")
		return
	}

	client.mu.Lock()
	err = client.conn.WriteMessage(websocket.TextMessage, data)
	client.mu.Unlock()

	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send message to client")
	}
}

// subscribeToRunEvents forwards pipeline lifecycle events to all clients.
// Per-script progress is throttled; start, completion and failure always go
// through.
func (h *WebSocketHandler) subscribeToRunEvents() {
	forward := func(wsType string, throttled bool) interfaces.EventHandler {
		return func(ctx context.Context, event interfaces.Event) error {
			if throttled && h.progressThrottle != nil && !h.progressThrottle.Allow() {
				return nil
			}
			h.Broadcast(WSMessage{Type: wsType, Payload: event.Payload})
			return nil
		}
	}

	h.eventService.Subscribe(interfaces.EventRunStarted, forward("run_started", false))
	h.eventService.Subscribe(interfaces.EventRunScriptCompleted, forward("run_progress", true))
	h.eventService.Subscribe(interfaces.EventRunCompleted, forward("run_completed", false))
	h.eventService.Subscribe(interfaces.EventRunFailed, forward("run_failed", false))
	h.eventService.Subscribe(interfaces.EventSchedulesRebuilt, forward("schedules_rebuilt", false))
}
