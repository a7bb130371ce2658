package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/wicara/domain/entities"
	"github.com/satriahrh/wicara/domain/repositories"
	"github.com/satriahrh/wicara/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The console is same-origin; tokens already guard the endpoint.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active console clients and broadcasts catalog
// updates to them. Each client carries its own playback service.
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	synth   repositories.Synthesizer
	catalog *usecase.Catalog

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub. Catalog updates fan out to every
// connected console.
func NewHub(synth repositories.Synthesizer, catalog *usecase.Catalog, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		synth:      synth,
		catalog:    catalog,
		logger:     logger,
	}
	catalog.OnUpdate(func(voices []entities.Voice, selected string) {
		h.broadcastVoices(voices, selected)
	})
	return h
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("sessionID", client.sessionID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.sessionID]; ok {
				delete(h.clients, client.sessionID)
				close(client.send)
			}
			h.mu.Unlock()
			client.playback.Stop()
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))
		}
	}
}

// ActiveSessions returns the IDs of the connected consoles.
func (h *Hub) ActiveSessions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sessions := make([]string, 0, len(h.clients))
	for id := range h.clients {
		sessions = append(sessions, id)
	}
	return sessions
}

// SendToSession delivers a raw text payload to one console.
func (h *Hub) SendToSession(sessionID string, payload []byte) error {
	h.mu.RLock()
	client, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no client for session %s", sessionID)
	}
	client.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
	return nil
}

func (h *Hub) broadcastVoices(voices []entities.Voice, selected string) {
	payload, err := json.Marshal(CreateVoicesMessage(voices, selected))
	if err != nil {
		h.logger.Error("Failed to marshal voices message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		client.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
	}
}

// WriteData is one outbound websocket frame.
type WriteData struct {
	// Type is websocket.TextMessage or websocket.BinaryMessage.
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Console session ID for this client
	sessionID string

	playback  *usecase.PlaybackService
	validator *MessageValidator

	logger *zap.Logger
}

// HandleWebSocketWithAuth handles websocket requests with a pre-authenticated
// session ID.
func HandleWebSocketWithAuth(hub *Hub, c echo.Context, sessionID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan WriteData, 256),
		sessionID: sessionID,
		validator: NewMessageValidator(),
		logger:    logger,
	}
	client.playback = usecase.NewPlaybackService(hub.synth, hub.catalog, logger, client.onPlayback)

	client.hub.register <- client

	// Seed the console with the current catalog before any command arrives.
	client.sendMessage(CreateVoicesMessage(hub.catalog.Voices(), hub.catalog.Selected()))

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unexpected message type", zap.Int("type", messageType))
			continue
		}
		c.processMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
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

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
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

// processMessage validates and dispatches one console command.
func (c *Client) processMessage(message []byte) {
	parsed, err := c.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Rejected console message", zap.Error(err))
		c.sendMessage(CreateErrorMessage("invalid_message", err.Error()))
		return
	}

	switch msg := parsed.(type) {
	case *PlayMessage:
		c.handlePlay(msg)
	case *PauseToggleMessage:
		c.handlePauseToggle()
	case *StopMessage:
		c.playback.Stop()
	case *SelectVoiceMessage:
		c.handleSelectVoice(msg)
	case *PingMessage:
		c.sendMessage(CreatePongMessage(msg.Data))
	default:
		c.logger.Warn("Unhandled message", zap.Any("message", parsed))
	}
}

func (c *Client) handlePlay(msg *PlayMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rate := msg.Rate
	if rate == 0 {
		rate = entities.DefaultRate
	}
	pitch := msg.Pitch
	if pitch == 0 {
		pitch = entities.DefaultPitch
	}

	utterance, err := c.playback.Play(ctx, msg.Text, msg.VoiceID, rate, pitch)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyText) {
			// The page disables play on empty text; a raced command is a
			// no-op.
			return
		}
		c.logger.Error("Play command failed", zap.Error(err))
		c.sendMessage(CreateErrorMessage("play_failed", err.Error()))
		return
	}

	c.logger.Info("Play command accepted",
		zap.String("sessionID", c.sessionID),
		zap.String("utteranceID", utterance.ID))
}

func (c *Client) handlePauseToggle() {
	if err := c.playback.PauseToggle(); err != nil {
		if errors.Is(err, usecase.ErrNotActive) {
			return
		}
		c.logger.Error("Pause toggle failed", zap.Error(err))
		c.sendMessage(CreateErrorMessage("pause_failed", err.Error()))
	}
}

func (c *Client) handleSelectVoice(msg *SelectVoiceMessage) {
	if err := c.hub.catalog.Select(msg.VoiceID); err != nil {
		c.sendMessage(CreateErrorMessage("unknown_voice", err.Error()))
		return
	}
	c.sendMessage(CreateVoicesMessage(c.hub.catalog.Voices(), c.hub.catalog.Selected()))
}

// onPlayback relays playback service notifications to the console: lifecycle
// transitions as JSON, streamed audio as binary frames.
func (c *Client) onPlayback(event usecase.PlaybackEvent) {
	switch event.Kind {
	case entities.SpeechStarted:
		c.sendMessage(CreateSpeechMessage(MessageTypeSpeakingStart, event.UtteranceID, event.Status))
	case entities.SpeechAudio:
		c.enqueue(WriteData{Type: websocket.BinaryMessage, Payload: event.Chunk})
	case entities.SpeechEnded:
		c.sendMessage(CreateSpeechMessage(MessageTypeSpeakingEnd, event.UtteranceID, event.Status))
	case entities.SpeechErrored:
		// Errors end playback like a natural end; the console gets the state
		// change without an error banner.
		c.sendMessage(CreateSpeechMessage(MessageTypeSpeakingError, event.UtteranceID, event.Status))
	default:
		c.sendMessage(CreateSpeechMessage(MessageTypeState, event.UtteranceID, event.Status))
	}
}

func (c *Client) sendMessage(message interface{}) {
	payload, err := json.Marshal(message)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	c.enqueue(WriteData{Type: websocket.TextMessage, Payload: payload})
}

// enqueue drops the frame when the client cannot keep up instead of blocking
// the synthesizer's event loop.
func (c *Client) enqueue(data WriteData) {
	defer func() {
		// A concurrent unregister may have closed the channel.
		_ = recover()
	}()
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Dropping frame for slow client", zap.String("sessionID", c.sessionID))
	}
}
