// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pdfchat/backend/internal/session"
)

// ChatHandler handles chat session operations
type ChatHandler interface {
	HandleCreateSession(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleDeleteSession(c echo.Context) error
	HandleAsk(c echo.Context) error
	HandleUpload(c echo.Context) error
	HandleSelectDocument(c echo.Context) error
	HandleDeselectDocument(c echo.Context) error
	HandleNewChat(c echo.Context) error
	HandleGetDocuments(c echo.Context) error
	HandleDrainToasts(c echo.Context) error
}

// ExportHandler serves binary and file exports of a session
type ExportHandler interface {
	HandleSessionStateMsgpack(c echo.Context) error
	HandleTranscript(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// SocketHandler pushes live session events over WebSocket
type SocketHandler interface {
	HandleWebSocket(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create(ctx context.Context) (*session.Session, error)
	Get(id string) (*session.Session, bool)
	Delete(id string) bool
}

// Pinger reports whether the answering service is reachable
type Pinger interface {
	Ping(ctx context.Context) (string, error)
}
