package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bazaar/internal/api"
	"bazaar/internal/auth"
	"bazaar/internal/config"
	"bazaar/internal/db"
	"bazaar/internal/economy"

	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.EnsureSchema {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Error("schema init failed", "err", err)
			os.Exit(1)
		}
	}
	if cfg.SeedItems {
		if err := db.SeedCatalog(ctx, pool); err != nil {
			logger.Error("catalog seed failed", "err", err)
			os.Exit(1)
		}
	}

	authClient := auth.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
	svc := economy.NewService(pool, logger,
		economy.WithTransferFeeRate(cfg.TransferFeeRate),
		economy.WithStarterGold(cfg.StarterGold))

	server := api.New(cfg, logger, authClient, svc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("bazaar api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
