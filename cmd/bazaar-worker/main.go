package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bazaar/internal/config"
	"bazaar/internal/db"
	"bazaar/internal/economy"

	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.LoadWorkerFromEnv()
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

	svc := economy.NewService(pool, logger, economy.WithTransferFeeRate(cfg.TransferFeeRate))

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("BAZAAR_WORKER_RUN_ONCE")), "true")
	if runOnce {
		runAll(ctx, logger, svc)
		logger.Info("worker run-once completed")
		return
	}

	sweep := time.NewTicker(cfg.SweepEvery)
	defer sweep.Stop()
	demand := time.NewTicker(cfg.DemandEvery)
	defer demand.Stop()
	history := time.NewTicker(cfg.HistoryEvery)
	defer history.Stop()
	reputation := time.NewTicker(cfg.ReputationEvery)
	defer reputation.Stop()

	logger.Info("worker started",
		"sweep_every", cfg.SweepEvery.String(),
		"demand_every", cfg.DemandEvery.String(),
		"history_every", cfg.HistoryEvery.String(),
		"reputation_every", cfg.ReputationEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-sweep.C:
			if n, err := svc.SweepExpiredListings(ctx); err != nil {
				logger.Error("listing sweep failed", "err", err)
			} else if n > 0 {
				logger.Info("listings expired", "count", n)
			}
		case <-demand.C:
			if n, err := svc.RefreshMarketDemand(ctx); err != nil {
				logger.Error("demand refresh failed", "err", err)
			} else {
				logger.Info("demand refreshed", "items", n)
			}
		case <-history.C:
			for _, period := range []economy.HistoryPeriod{economy.PeriodDaily, economy.PeriodWeekly, economy.PeriodMonthly} {
				if _, err := svc.SnapshotPriceHistory(ctx, period); err != nil {
					logger.Error("history snapshot failed", "period", period, "err", err)
				}
			}
		case <-reputation.C:
			if n, err := svc.FlagSuspiciousUsers(ctx); err != nil {
				logger.Error("reputation scan failed", "err", err)
			} else if n > 0 {
				logger.Warn("users flagged", "count", n)
			}
		}
	}
}

func runAll(ctx context.Context, logger *slog.Logger, svc *economy.Service) {
	if n, err := svc.SweepExpiredListings(ctx); err != nil {
		logger.Error("listing sweep failed", "err", err)
	} else {
		logger.Info("listings expired", "count", n)
	}
	if n, err := svc.RefreshMarketDemand(ctx); err != nil {
		logger.Error("demand refresh failed", "err", err)
	} else {
		logger.Info("demand refreshed", "items", n)
	}
	for _, period := range []economy.HistoryPeriod{economy.PeriodDaily, economy.PeriodWeekly, economy.PeriodMonthly} {
		if _, err := svc.SnapshotPriceHistory(ctx, period); err != nil {
			logger.Error("history snapshot failed", "period", period, "err", err)
		}
	}
	if n, err := svc.FlagSuspiciousUsers(ctx); err != nil {
		logger.Error("reputation scan failed", "err", err)
	} else {
		logger.Info("users flagged", "count", n)
	}
}
