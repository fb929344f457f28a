package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/LauraMoney42/derrite/internal/api"
	"github.com/LauraMoney42/derrite/internal/config"
	"github.com/LauraMoney42/derrite/internal/engine"
	"github.com/LauraMoney42/derrite/internal/kvstore"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	configPath := flag.String("config", "configs/config.yml", "path to the YAML configuration file")
	flag.Parse()

	// Optional .env overlay for secrets like the database DSN.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("Config file not loaded, using defaults", zap.Error(err))
		cfg = config.Default()
	}

	kv, cleanup, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open persistence store", zap.Error(err))
	}
	defer cleanup()

	core := engine.New(kv, logger, engine.Options{
		AlertDistance: cfg.Alerts.DistanceMeters,
		SweepInterval: time.Duration(cfg.Alerts.SweepIntervalSeconds) * time.Second,
	})
	core.StartSweeping()
	defer core.StopSweeping()

	handler := api.NewHandler(core, logger)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

// openStore selects the persistence backend from configuration.
func openStore(cfg *config.Config, logger *zap.Logger) (kvstore.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "postgres":
		store, err := kvstore.NewPostgresStore(cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using PostgreSQL persistence")
		return store, func() { _ = store.Close() }, nil
	case "memory":
		logger.Info("Using in-memory persistence, state will not survive restarts")
		return kvstore.NewMemoryStore(), func() {}, nil
	default:
		store, err := kvstore.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using file persistence", zap.String("dir", cfg.Storage.Path))
		return store, func() {}, nil
	}
}
