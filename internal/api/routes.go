// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Sessions              SessionManager
	Backend               Pinger
	Version               string
	WebSocketMaxMessageKB int
}

// Handlers holds all handler instances
type Handlers struct {
	Health HealthHandler
	Chat   ChatHandler
	Export ExportHandler
	Socket SocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Version, deps.Backend),
		Chat:   NewChatHandler(deps.Sessions),
		Export: NewExportHandler(deps.Sessions),
		Socket: NewWebSocketHandler(deps.Sessions, int64(deps.WebSocketMaxMessageKB)*1024),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	api := e.Group("/api")

	// Health check
	api.GET("/health", handlers.Health.HandleHealth)

	// Chat session routes
	sessions := api.Group("/sessions")
	sessions.POST("", handlers.Chat.HandleCreateSession)
	sessions.GET("/:id", handlers.Chat.HandleGetSession)
	sessions.DELETE("/:id", handlers.Chat.HandleDeleteSession)
	sessions.POST("/:id/ask", handlers.Chat.HandleAsk)
	sessions.POST("/:id/upload", handlers.Chat.HandleUpload)
	sessions.POST("/:id/select", handlers.Chat.HandleSelectDocument)
	sessions.POST("/:id/deselect", handlers.Chat.HandleDeselectDocument)
	sessions.POST("/:id/new-chat", handlers.Chat.HandleNewChat)
	sessions.GET("/:id/documents", handlers.Chat.HandleGetDocuments)
	sessions.GET("/:id/toasts", handlers.Chat.HandleDrainToasts)

	// Exports
	sessions.GET("/:id/state/msgpack", handlers.Export.HandleSessionStateMsgpack)
	sessions.GET("/:id/transcript", handlers.Export.HandleTranscript)

	// Live updates
	sessions.GET("/:id/ws", handlers.Socket.HandleWebSocket)
}

// MiddlewareOptions selects the common middleware to install
type MiddlewareOptions struct {
	RequestLogging   bool
	Compression      bool
	CompressionLevel int
	BodyLimit        string
	CORS             bool
	AllowOrigins     string
	ShowErrorDetails bool
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions) {
	// Use custom error handler
	e.HTTPErrorHandler = NewErrorHandler(opts.ShowErrorDetails)

	if opts.RequestLogging {
		e.Use(RequestLogger())
	}

	e.Use(middleware.Recover())

	if opts.Compression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   opts.CompressionLevel,
			Skipper: skipNonCompressible,
		}))
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if opts.CORS {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: splitOrigins(opts.AllowOrigins),
			AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}

// skipNonCompressible leaves WebSocket upgrades and binary exports alone.
func skipNonCompressible(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasSuffix(path, "/ws") || strings.HasSuffix(path, "/msgpack")
}

func splitOrigins(origins string) []string {
	if strings.TrimSpace(origins) == "" {
		return []string{"*"}
	}
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
