package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/foundermate/foundermate/internal/agent"
	"github.com/foundermate/foundermate/internal/agents"
	"github.com/foundermate/foundermate/internal/auth"
	"github.com/foundermate/foundermate/internal/config"
	"github.com/foundermate/foundermate/internal/proactive"
	"github.com/foundermate/foundermate/internal/ratelimit"
	"github.com/foundermate/foundermate/internal/server"
	"github.com/foundermate/foundermate/internal/service/completion"
	"github.com/foundermate/foundermate/internal/storage"
	"github.com/foundermate/foundermate/internal/telemetry"
	"github.com/foundermate/foundermate/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("FOUNDERMATE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("foundermate starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database and run migrations.
	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Create JWT manager.
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	// Create completion provider and agent registry.
	completer := newCompletionProvider(cfg, logger)

	registry, err := agent.NewRegistry(agents.Catalog()...)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	logger.Info("agent registry loaded", "agents", registry.Len())

	engine := agent.NewEngine(registry, db,
		func(userID uuid.UUID) agent.Store { return db.ScopedTo(userID) },
		completer, logger)

	// Proactive detection pipeline.
	pipeline := proactive.New(db, logger, cfg.DedupWindow,
		&proactive.StaleTaskDetector{Tasks: db, StaleAfter: cfg.StaleTaskAfter},
		&proactive.DeadlineDetector{Tasks: db, Horizon: cfg.DeadlineHorizon},
	)

	// Prune old fingerprints daily. Keep a full extra window so a row is
	// only removed once it can no longer suppress anything.
	go fingerprintPruneLoop(ctx, db, logger, cfg.DedupWindow)

	// Rate limit the credential exchange endpoint by client IP.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		memLimiter := ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		defer func() { _ = memLimiter.Close() }()
		limiter = memLimiter
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		logger.Info("rate limiting: disabled")
	}

	// Create and start HTTP server.
	srv := server.New(server.ServerConfig{
		DB:                  db,
		JWTMgr:              jwtMgr,
		Engine:              engine,
		Registry:            registry,
		Pipeline:            pipeline,
		Logger:              logger,
		Limiter:             limiter,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	slog.Info("foundermate shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("foundermate stopped")
	return nil
}

// newCompletionProvider creates a completion provider based on configuration.
// Provider selection: "openai", "static", or "auto" (default). Auto mode uses
// OpenAI when a key is present, otherwise a static provider so the server
// stays usable in development.
func newCompletionProvider(cfg config.Config, logger *slog.Logger) completion.Provider {
	switch cfg.CompletionProvider {
	case "openai":
		logger.Info("completion provider: openai", "model", cfg.CompletionModel)
		return completion.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.CompletionModel, cfg.OpenAIBaseURL)

	case "static":
		logger.Info("completion provider: static (development mode)")
		return devStaticProvider()

	case "auto":
		fallthrough
	default:
		if cfg.OpenAIAPIKey != "" {
			logger.Info("completion provider: openai (auto-detected)", "model", cfg.CompletionModel)
			return completion.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.CompletionModel, cfg.OpenAIBaseURL)
		}
		logger.Warn("no OPENAI_API_KEY set, using static completion provider")
		return devStaticProvider()
	}
}

func devStaticProvider() *completion.StaticProvider {
	return &completion.StaticProvider{
		Text: `{"text": "Static development response. Configure OPENAI_API_KEY for real completions."}`,
	}
}

func fingerprintPruneLoop(ctx context.Context, db *storage.DB, logger *slog.Logger, window time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-2 * window)
			n, err := db.PruneFingerprints(ctx, cutoff)
			if err != nil {
				logger.Warn("fingerprint prune failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("fingerprints pruned", "count", n)
			}
		}
	}
}
