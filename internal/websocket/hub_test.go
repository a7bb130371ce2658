package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/wicara/adapters/synth"
	"github.com/satriahrh/wicara/internal/auth"
	"github.com/satriahrh/wicara/usecase"
)

func setupTestHub(t testing.TB) (*Hub, *synth.MockSynthesizer, *zap.Logger) {
	logger := zap.NewNop() // No-op logger for tests

	mock := synth.NewMockSynthesizer(logger, false)
	catalog := usecase.NewCatalog(mock, logger)
	if err := catalog.Load(context.Background()); err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}

	hub := NewHub(mock, catalog, logger)
	return hub, mock, logger
}

func newTestClient(hub *Hub, sessionID string, logger *zap.Logger) *Client {
	client := &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan WriteData, 256),
		validator: NewMessageValidator(),
		logger:    logger,
	}
	client.playback = usecase.NewPlaybackService(hub.synth, hub.catalog, logger, client.onPlayback)
	return client
}

func readTextMessage(t *testing.T, client *Client) map[string]interface{} {
	t.Helper()
	select {
	case frame := <-client.send:
		if frame.Type != websocket.TextMessage {
			t.Fatalf("Expected text frame, got type %d", frame.Type)
		}
		var decoded map[string]interface{}
		if err := json.Unmarshal(frame.Payload, &decoded); err != nil {
			t.Fatalf("Failed to unmarshal frame: %v", err)
		}
		return decoded
	case <-time.After(time.Second):
		t.Fatal("Message not received within timeout")
		return nil
	}
}

func TestHub_NewHub(t *testing.T) {
	hub, _, _ := setupTestHub(t)

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}
	if hub.clients == nil {
		t.Error("Hub clients map not initialized")
	}
	if hub.register == nil {
		t.Error("Hub register channel not initialized")
	}
	if hub.unregister == nil {
		t.Error("Hub unregister channel not initialized")
	}
	if hub.catalog == nil {
		t.Error("Hub catalog not set")
	}
}

func TestHub_ActiveSessions(t *testing.T) {
	hub, _, logger := setupTestHub(t)

	client1 := newTestClient(hub, "session-1", logger)
	client2 := newTestClient(hub, "session-2", logger)

	hub.clients[client1.sessionID] = client1
	hub.clients[client2.sessionID] = client2

	sessions := hub.ActiveSessions()
	if len(sessions) != 2 {
		t.Errorf("Expected 2 active sessions, got %d", len(sessions))
	}

	sessionMap := make(map[string]bool)
	for _, id := range sessions {
		sessionMap[id] = true
	}
	if !sessionMap["session-1"] || !sessionMap["session-2"] {
		t.Errorf("Expected both sessions in the list, got %v", sessions)
	}
}

func TestHub_SendToSession(t *testing.T) {
	hub, _, logger := setupTestHub(t)

	client := newTestClient(hub, "test-session", logger)
	hub.clients[client.sessionID] = client

	message := []byte(`{"type":"test","message":"hello"}`)

	if err := hub.SendToSession("test-session", message); err != nil {
		t.Errorf("SendToSession should not return error, got: %v", err)
	}

	select {
	case received := <-client.send:
		if string(received.Payload) != string(message) {
			t.Errorf("Expected message %s, got %s", message, received.Payload)
		}
	case <-time.After(time.Second):
		t.Error("Message not received within timeout")
	}

	if err := hub.SendToSession("ghost-session", message); err == nil {
		t.Error("SendToSession should return error for unknown session")
	}
}

func TestHub_BroadcastsCatalogUpdates(t *testing.T) {
	hub, mock, logger := setupTestHub(t)

	client := newTestClient(hub, "test-session", logger)
	hub.clients[client.sessionID] = client

	mock.SetVoices(hub.catalog.Voices()[:1])

	decoded := readTextMessage(t, client)
	if decoded["type"] != "voices" {
		t.Errorf("Expected voices broadcast, got %v", decoded["type"])
	}
}

func TestClientMessageProcessing(t *testing.T) {
	hub, mock, logger := setupTestHub(t)
	client := newTestClient(hub, "test-session", logger)

	// Ping round trip.
	client.processMessage([]byte(`{"type": "ping", "data": "test-ping"}`))
	decoded := readTextMessage(t, client)
	if decoded["type"] != "pong" {
		t.Errorf("Expected pong type, got %v", decoded["type"])
	}

	// Invalid message yields an error response.
	client.processMessage([]byte(`{invalid json}`))
	decoded = readTextMessage(t, client)
	if decoded["type"] != "error" {
		t.Errorf("Expected error type, got %v", decoded["type"])
	}

	// Play submits an utterance; the started callback reaches the console.
	client.processMessage([]byte(`{"type": "play", "text": "Hello world", "rate": 1.0, "pitch": 1.0}`))
	if mock.LastUtterance().Text != "Hello world" {
		t.Fatalf("Expected submitted utterance, got %q", mock.LastUtterance().Text)
	}

	mock.EmitStarted()
	decoded = readTextMessage(t, client)
	if decoded["type"] != "speaking_start" {
		t.Errorf("Expected speaking_start, got %v", decoded["type"])
	}
	if decoded["status"] != "speaking" {
		t.Errorf("Expected speaking status, got %v", decoded["status"])
	}

	mock.EmitEnded()
	decoded = readTextMessage(t, client)
	if decoded["type"] != "speaking_end" {
		t.Errorf("Expected speaking_end, got %v", decoded["type"])
	}
	if decoded["status"] != "idle" {
		t.Errorf("Expected idle status, got %v", decoded["status"])
	}
}

func TestClientMessageProcessing_WhitespaceTextIsNoOp(t *testing.T) {
	hub, mock, logger := setupTestHub(t)
	client := newTestClient(hub, "test-session", logger)

	client.processMessage([]byte(`{"type": "play", "text": "   "}`))

	if commands := mock.Commands(); len(commands) != 0 {
		t.Errorf("Expected no platform commands, got %v", commands)
	}
	select {
	case frame := <-client.send:
		t.Errorf("Expected no response, got %s", frame.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClientMessageProcessing_AudioChunksAreBinary(t *testing.T) {
	hub, mock, logger := setupTestHub(t)
	client := newTestClient(hub, "test-session", logger)

	client.processMessage([]byte(`{"type": "play", "text": "stream me"}`))
	mock.EmitStarted()
	readTextMessage(t, client) // speaking_start

	chunk := []byte{1, 2, 3, 4}
	mock.EmitAudio(chunk)

	select {
	case frame := <-client.send:
		if frame.Type != websocket.BinaryMessage {
			t.Errorf("Expected binary frame, got type %d", frame.Type)
		}
		if string(frame.Payload) != string(chunk) {
			t.Errorf("Expected chunk %v, got %v", chunk, frame.Payload)
		}
	case <-time.After(time.Second):
		t.Error("Audio frame not received within timeout")
	}
}

func TestJWTAuthentication(t *testing.T) {
	sessionID := "test-session-123"

	token, err := auth.GenerateSessionToken(sessionID)
	if err != nil {
		t.Errorf("GenerateSessionToken failed: %v", err)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Errorf("ValidateToken failed: %v", err)
	}

	if claims.SessionID != sessionID {
		t.Errorf("Expected session ID %s, got %s", sessionID, claims.SessionID)
	}
	if claims.Role != "console" {
		t.Errorf("Expected role 'console', got '%s'", claims.Role)
	}

	if _, err := auth.ValidateToken("not-a-token"); err == nil {
		t.Error("ValidateToken should fail for garbage input")
	}
}

func TestWebSocketUpgrade_WithAuth(t *testing.T) {
	hub, _, logger := setupTestHub(t)
	go hub.Run()

	sessionID := "test-session-123"
	token, err := auth.GenerateSessionToken(sessionID)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		queryToken := c.QueryParam("token")
		claims, err := auth.ValidateToken(queryToken)
		if err != nil {
			return echo.ErrUnauthorized
		}
		return HandleWebSocketWithAuth(hub, c, claims.SessionID, logger)
	})

	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + token

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket connection failed: %v", err)
	}
	defer ws.Close()

	// The server seeds the console with the catalog right after the upgrade.
	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read seed message: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal seed message: %v", err)
	}
	if decoded["type"] != "voices" {
		t.Errorf("Expected voices seed message, got %v", decoded["type"])
	}

	// Without a token the endpoint refuses the upgrade.
	wsURLNoToken := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	if _, _, err := websocket.DefaultDialer.Dial(wsURLNoToken, nil); err == nil {
		t.Error("WebSocket connection should fail without token")
	}
}

func TestConcurrentClientHandling(t *testing.T) {
	hub, _, logger := setupTestHub(t)
	go hub.Run()

	numClients := 10
	clients := make([]*Client, numClients)

	for i := 0; i < numClients; i++ {
		client := newTestClient(hub, fmt.Sprintf("session-%d", i), logger)
		clients[i] = client
		hub.register <- client
	}

	time.Sleep(100 * time.Millisecond)

	if got := len(hub.ActiveSessions()); got != numClients {
		t.Errorf("Expected %d active sessions, got %d", numClients, got)
	}

	for _, client := range clients {
		hub.unregister <- client
	}

	time.Sleep(100 * time.Millisecond)

	if got := len(hub.ActiveSessions()); got != 0 {
		t.Errorf("Expected 0 active sessions, got %d", got)
	}
}
