package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/wicara/internal/auth"
	"github.com/satriahrh/wicara/internal/websocket"
	"github.com/satriahrh/wicara/usecase"
	"github.com/satriahrh/wicara/web"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, catalog *usecase.Catalog, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "wicara-server",
		})
	})

	// The console page itself
	e.GET("/", func(c echo.Context) error {
		return c.HTMLBlob(http.StatusOK, web.IndexHTML)
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/session", func(c echo.Context) error {
		return createSession(c, logger)
	})

	v1.GET("/voices", func(c echo.Context) error {
		return c.JSON(http.StatusOK, VoicesResponse{
			Voices:   catalog.Voices(),
			Selected: catalog.Selected(),
		})
	})

	v1.POST("/export", func(c echo.Context) error {
		return exportText(c, logger)
	})

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return websocketWithAuth(hub, c, logger)
	})
}

// createSession mints a console session: a fresh ID plus the JWT that opens
// the websocket.
func createSession(c echo.Context, logger *zap.Logger) error {
	sessionID := uuid.NewString()

	token, err := auth.GenerateSessionToken(sessionID)
	if err != nil {
		logger.Error("Failed to generate session token",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate session token",
		})
	}

	// Expiration matches the JWT claims (24 hours).
	expiresAt := time.Now().Add(24 * time.Hour)

	logger.Info("Console session created", zap.String("session_id", sessionID))

	return c.JSON(http.StatusOK, SessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		SessionID: sessionID,
	})
}

// exportText serializes the console's text buffer and answers it as a
// save-as download.
func exportText(c echo.Context, logger *zap.Logger) error {
	var req ExportRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind export request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	content, err := usecase.ExportText(req.Text)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyText) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "empty_text",
				Message: "There is no text to export",
			})
		}
		logger.Error("Export failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "export_failed",
			Message: "Failed to export text",
		})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, usecase.ExportFilename))
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, content)
}

// websocketWithAuth handles WebSocket connections with JWT authentication.
// Browsers cannot set headers on websocket dials, so the token travels as a
// query parameter.
func websocketWithAuth(hub *websocket.Hub, c echo.Context, logger *zap.Logger) error {
	token := c.QueryParam("token")
	if token == "" {
		logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "Session token is required",
		})
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired session token",
		})
	}

	if claims.Role != "console" {
		logger.Warn("WebSocket connection rejected: invalid role",
			zap.String("role", claims.Role))
		return c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "invalid_role",
			Message: "Only console tokens are allowed for WebSocket connections",
		})
	}

	sessionID := claims.SessionID
	if sessionID == "" {
		logger.Error("WebSocket connection rejected: missing session ID in token")
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_token_claims",
			Message: "Session ID not found in token",
		})
	}

	logger.Info("WebSocket connection authenticated",
		zap.String("session_id", sessionID))

	return websocket.HandleWebSocketWithAuth(hub, c, sessionID, logger)
}
