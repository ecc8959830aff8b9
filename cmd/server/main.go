package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/loveletter-online/server-go/internal/auth"
	"github.com/loveletter-online/server-go/internal/config"
	"github.com/loveletter-online/server-go/internal/repository"
	"github.com/loveletter-online/server-go/internal/room"
	"github.com/loveletter-online/server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting love letter server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Persistence is optional: without a database URL the server runs
	// games but records nothing and serves no stats.
	var store *repository.Store
	if cfg.Database.URL != "" {
		pool, err := repository.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		store = repository.New(pool, logger)
		logger.Info("database connection pool initialized")
	} else {
		logger.Warn("no database configured; stats and game recording disabled")
	}

	var verifier room.IdentityVerifier
	if cfg.Auth.Audience != "" {
		verifier = auth.NewVerifier(cfg.Auth.Audience, cfg.Auth.KeysURL, cfg.Auth.KeyTTL)
		logger.Info("identity verifier initialized", zap.String("audience", cfg.Auth.Audience))
	} else {
		logger.Warn("no auth audience configured; credential verification disabled")
	}

	var recorder room.Recorder
	if store != nil {
		recorder = store
	}
	rooms := room.NewManager(room.Options{
		BotDelayMin: cfg.Game.BotDelayMin,
		BotDelayMax: cfg.Game.BotDelayMax,
		GracePeriod: cfg.Game.GracePeriod,
	}, recorder, verifier, logger)
	logger.Info("room manager initialized",
		zap.Duration("grace_period", cfg.Game.GracePeriod),
	)

	var statsStore server.Store
	if store != nil {
		statsStore = store
	}
	mux := http.NewServeMux()
	mux.Handle("/ws", server.NewWSHandler(rooms, logger))
	server.NewStatsAPI(statsStore, rooms, logger).Register(mux)

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	logger.Info("love letter server initialized",
		zap.String("version", version),
		zap.String("address", cfg.Server.Address),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	rooms.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}

	logger.Info("love letter server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
