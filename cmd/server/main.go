package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pdfchat/backend/internal/api"
	"github.com/pdfchat/backend/internal/backend"
	"github.com/pdfchat/backend/internal/config"
	"github.com/pdfchat/backend/internal/logging"
	"github.com/pdfchat/backend/internal/session"
	"github.com/pdfchat/backend/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const defaultConfigName = "PDFChatGateway.config"

func main() {
	app := &cli.App{
		Name:    "pdfchat-gateway",
		Usage:   "Chat with your PDFs through a question-answering service",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (created with defaults if missing)",
			},
			&cli.StringFlag{
				Name:    "backend-url",
				Aliases: []string{"b"},
				Usage:   "Base `URL` of the question-answering service",
				EnvVars: []string{"PDFCHAT_BACKEND_URL"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP `PORT` to listen on",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	configPath, err := resolveConfigPath(c.String("config"))
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if url := c.String("backend-url"); url != "" {
		cfg.Backend.BaseURL = url
	}
	if port := c.Int("port"); port != 0 {
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.Setup(cfg.Advanced.LogLevel, cfg.Advanced.PrettyLogs)

	srv := newServer(cfg)
	embeddedMode := web.HasEmbeddedFiles()
	if embeddedMode {
		if err := web.RegisterStaticRoutes(srv.echo); err != nil {
			log.Warn().Err(err).Msg("failed to register static routes")
		} else {
			log.Info().Msg("serving embedded frontend from binary")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go srv.cleanupLoop(ctx, cfg.CleanupInterval(), cfg.SessionTimeout())

	printBanner(cfg, configPath, embeddedMode)

	httpServer := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.echo.StartServer(httpServer)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.echo.Shutdown(shutdownCtx)
}

// server bundles the wired gateway.
type server struct {
	echo     *echo.Echo
	sessions *session.Manager
}

// newServer wires the answering service client, the session manager and the
// HTTP API.
func newServer(cfg *config.AppConfig) *server {
	httpClient := backend.NewHTTPClient(backend.Options{
		BaseURL:       cfg.Backend.BaseURL,
		Timeout:       cfg.BackendTimeout(),
		RatePerSecond: cfg.Backend.RatePerSecond,
		Burst:         cfg.Backend.RateBurst,
	})
	client := backend.NewCachedClient(httpClient, cfg.DocumentCacheTTL())

	sessions := session.NewManager(client, session.ManagerOptions{
		MaxSessions:      cfg.Session.MaxSessions,
		MaxPendingToasts: cfg.Session.MaxPendingToasts,
		Controller: session.Options{
			RequestTimeout:  cfg.BackendTimeout(),
			RequireDocument: cfg.Session.RequireDocument,
		},
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareOptions{
		RequestLogging:   cfg.Advanced.EnableRequestLogging,
		Compression:      cfg.Advanced.EnableCompression,
		CompressionLevel: cfg.Advanced.CompressionLevel,
		BodyLimit:        cfg.Server.BodyLimit,
		CORS:             cfg.Server.EnableCORS,
		AllowOrigins:     cfg.Server.AllowOrigins,
		ShowErrorDetails: cfg.Advanced.LogLevel == "debug",
	})

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Sessions:              sessions,
		Backend:               httpClient,
		Version:               Version,
		WebSocketMaxMessageKB: cfg.Advanced.WebSocketMaxMessageSize,
	}))

	return &server{echo: e, sessions: sessions}
}

// cleanupLoop drops idle sessions until ctx is done.
func (s *server) cleanupLoop(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sessions.CleanupOldSessions(maxAge); n > 0 {
				log.Info().Int("removed", n).Int("active", s.sessions.Len()).Msg("session cleanup")
			}
		}
	}
}

// resolveConfigPath defaults to a config file next to the executable.
func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(exePath), defaultConfigName), nil
}

func printBanner(cfg *config.AppConfig, configPath string, embeddedMode bool) {
	mode := "API only"
	if embeddedMode {
		mode = "Embedded frontend"
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           PDF Chat Gateway                                ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Backend:   %-46s║\n", cfg.Backend.BaseURL)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if embeddedMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}
}
