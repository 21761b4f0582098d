package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"youth-cms-backend/api"
	"youth-cms-backend/pkg/config"
	"youth-cms-backend/pkg/database"
	"youth-cms-backend/pkg/realtime"
	"youth-cms-backend/pkg/storage"
	"youth-cms-backend/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	cfg := config.GetCached()

	logger, err := buildLogger(cfg)
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.GetDatabase(ctx, database.DatabaseConfig{
		PostgresDSN: cfg.PostgresDSN,
		SupabaseURL: cfg.SupabaseURL,
		SupabaseKey: cfg.SupabaseKey,
		Debug:       cfg.Debug,
	}, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	store, err := buildStorage(cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}

	hub := realtime.NewHub(64)
	defer hub.Close()

	router := api.NewRouter(api.Deps{
		Config:  cfg,
		DB:      db,
		Store:   store,
		Hub:     hub,
		Logger:  logger,
		Revoked: utils.NewRevocationList(),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown did not finish cleanly", zap.Error(err))
		}
	}()

	logger.Info("server listening",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// buildStorage picks Supabase object storage when configured, local disk
// otherwise.
func buildStorage(cfg *config.Config) (storage.ObjectStorage, error) {
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		return storage.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey), nil
	}
	return storage.NewLocalStorage(cfg.StorageDir, "http://localhost:"+cfg.Port+"/files")
}
