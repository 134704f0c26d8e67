/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the food rescue logistics server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load configuration
  2. Initialize logging
  3. Open the store (SQLite, MongoDB or memory)
  4. Build notification sinks (Slack, Telegram) and the dispatcher
  5. Build the token verifier (Firebase, or HS256 JWT for local dev)
  6. Configure HTTP router, optional rate limiter, digest scheduler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Optional YAML config file. Environment variables override it.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the digest scheduler
  4. Drain in-flight notifications
  5. Close the store
  6. Exit

EXAMPLES:
  # Local development with an in-memory store
  STORE_DRIVER=memory JWT_SECRET=dev-secret-please-change ./server

  # File config plus secrets from the environment
  SLACK_WEBHOOK_URL=https://hooks.slack.com/... ./server -config=config.yaml

SEE ALSO:
  - config/config.go: Settings and environment variables
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harvestlink/rescue-engine/api"
	"github.com/harvestlink/rescue-engine/auth"
	"github.com/harvestlink/rescue-engine/config"
	"github.com/harvestlink/rescue-engine/logger"
	"github.com/harvestlink/rescue-engine/notify"
	"github.com/harvestlink/rescue-engine/ratelimit"
	"github.com/harvestlink/rescue-engine/rescue"
	memstore "github.com/harvestlink/rescue-engine/rescue/store"
	"github.com/harvestlink/rescue-engine/store/mongo"
	"github.com/harvestlink/rescue-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// Initialize store
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer closeStore()

	// Notifications
	dispatcher := notify.NewDispatcher(buildSinks(cfg.Notify)...)
	if !dispatcher.Enabled() {
		logger.Warn("No notification channels configured; new pickups will not be announced")
	}

	// Authentication
	verifier, err := buildVerifier(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("initialize auth: %w", err)
	}
	authn := &api.Authenticator{
		Verifier: verifier,
		Resolver: rescue.NewResolver(store, cfg.Auth.AdminEmails),
	}

	// Initialize handler
	handler := api.NewHandler(store, dispatcher)
	if cfg.RateLimitEnabled() {
		limiter, err := ratelimit.NewSubmissionLimiter(ratelimit.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			Prefix:   "rescue:submit",
			Limit:    cfg.RateLimit.SubmitPerMinute,
			Window:   time.Minute,
		})
		if err != nil {
			return fmt.Errorf("initialize rate limiter: %w", err)
		}
		defer limiter.Close()
		handler.Limiter = limiter
		logger.Info("Submission rate limit enabled", "per_minute", cfg.RateLimit.SubmitPerMinute)
	}

	// Digest scheduler
	var scheduler *api.DigestScheduler
	if cfg.DigestEnabled() {
		scheduler, err = api.NewDigestScheduler(handler.Pickups, handler.Donors, dispatcher, cfg.Scheduler.PendingDigest)
		if err != nil {
			return err
		}
		scheduler.Start()
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, authn, cfg.Server.CORSOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", server.Addr, "store", cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	dispatcher.Wait()

	logger.Info("Server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (rescue.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverMongo:
		s, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Close(closeCtx); err != nil {
				logger.Error("Failed to close mongo store", "error", err)
			}
		}, nil
	case config.DriverMemory:
		logger.Warn("Using in-memory store; data is lost on restart")
		return memstore.NewMemory(), func() {}, nil
	default:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Error("Failed to close sqlite store", "error", err)
			}
		}, nil
	}
}

// buildSinks returns only the configured channels.
func buildSinks(cfg config.NotifyConfig) []notify.Sink {
	var sinks []notify.Sink
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, notify.NewSlackWebhook(cfg.SlackWebhookURL))
	}
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			logger.Error("Telegram disabled: bot initialization failed", "error", err)
		} else {
			sinks = append(sinks, tg)
		}
	}
	return sinks
}

func buildVerifier(ctx context.Context, cfg config.AuthConfig) (auth.Verifier, error) {
	if cfg.FirebaseProjectID != "" {
		logger.Info("Verifying Firebase ID tokens", "project", cfg.FirebaseProjectID)
		return auth.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID, cfg.FirebaseCredentialsFile)
	}
	logger.Warn("Verifying locally signed JWTs; configure FIREBASE_PROJECT_ID in production")
	return auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer, 24*time.Hour)
}
