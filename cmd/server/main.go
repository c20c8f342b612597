// wa-gateway - WhatsApp HTTP gateway
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/wa-gateway/internal/api"
	"github.com/ashureev/wa-gateway/internal/autoreply"
	"github.com/ashureev/wa-gateway/internal/config"
	"github.com/ashureev/wa-gateway/internal/middleware"
	"github.com/ashureev/wa-gateway/internal/phone"
	"github.com/ashureev/wa-gateway/internal/realtime"
	"github.com/ashureev/wa-gateway/internal/session"
	"github.com/ashureev/wa-gateway/internal/store"
	"github.com/ashureev/wa-gateway/internal/whatsapp"
	"github.com/ashureev/wa-gateway/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	db, err := store.Open(ctx, cfg.DeviceDBPath, whatsapp.NewLogger(logger.With("component", "sqlstore"), cfg.EngineLogLevel))
	if err != nil {
		slog.Error("Failed to initialize device database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close device database", "error", closeErr)
		}
	}()
	slog.Info("Device database ready", "path", cfg.DeviceDBPath)

	sessions := session.NewFileStore(cfg.SessionFile)
	rec, err := sessions.Load()
	if err != nil {
		slog.Warn("Ignoring unreadable session file", "path", sessions.Path(), "error", err)
		rec = nil
	}

	replies := autoreply.Default()
	if cfg.AutoReplyFile != "" {
		extra, err := autoreply.LoadFile(cfg.AutoReplyFile)
		if err != nil {
			slog.Error("Failed to load auto-reply table", "path", cfg.AutoReplyFile, "error", err)
			os.Exit(1)
		}
		replies = replies.Merge(extra)
		slog.Info("Auto-reply table loaded", "path", cfg.AutoReplyFile, "entries", len(replies))
	}

	device, resumed, err := whatsapp.ResolveDevice(ctx, db.Devices(), rec)
	if err != nil {
		slog.Error("Failed to resolve WhatsApp device", "error", err)
		os.Exit(1)
	}
	if rec != nil && !resumed {
		slog.Warn("Session file names an unknown device, pairing again", "jid", rec.JID)
	}

	// Initialize services.
	client := whatsapp.New(device, whatsapp.Options{
		Logger:         logger.With("component", "whatsapp"),
		EngineLogLevel: cfg.EngineLogLevel,
		Replies:        replies,
	})
	hub := realtime.NewHub()
	client.Subscribe(hub.Hooks())
	client.Subscribe(sessionHooks(sessions))

	// Initialize handlers.
	healthHandler := api.NewHealthHandler(db, client)
	messageHandler := api.NewMessageHandler(client, api.NewHTTPFetcher(cfg.MediaFetchTimeout), phone.NewFormatter(cfg.DefaultCountryCode))
	wsHandler := realtime.NewWebSocketHandler(hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(middleware.AllowedOrigins(cfg.FrontendURL)))

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		api.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	healthHandler.RegisterHealth(r)
	messageHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws", wsHandler.ServeHTTP)

	// Pairing dashboard.
	r.Handle("/*", web.DashboardHandler())

	// No WriteTimeout: media sends wait on the fetch and the upload.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	if err := client.Start(ctx); err != nil {
		// The API keeps serving; sends fail with not-ready until a restart.
		slog.Error("Failed to start WhatsApp client", "error", err)
	}
	defer client.Stop()

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		return
	}

	slog.Info("Server stopped successfully")
}

// sessionHooks keep the session file in step with the device's login state.
func sessionHooks(sessions *session.FileStore) whatsapp.Hooks {
	return whatsapp.Hooks{
		OnAuthenticated: func(rec session.Record) {
			if err := sessions.Save(rec); err != nil {
				slog.Error("Failed to save session", "path", sessions.Path(), "error", err)
				return
			}
			slog.Info("Session saved", "path", sessions.Path(), "jid", rec.JID)
		},
		OnLoggedOut: func(reason string) {
			if err := sessions.Clear(); err != nil {
				slog.Error("Failed to clear session", "path", sessions.Path(), "error", err)
				return
			}
			slog.Info("Session cleared", "reason", reason)
		},
	}
}
