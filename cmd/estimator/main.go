package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	_ "github.com/lib/pq"

	"trdb-estimator/internal/config"
	"trdb-estimator/internal/georate"
	"trdb-estimator/internal/market"
	"trdb-estimator/internal/notify"
	"trdb-estimator/internal/pricing"
	"trdb-estimator/internal/server"
	"trdb-estimator/internal/storage"
	"trdb-estimator/pkg/logger"
	"trdb-estimator/pkg/redis"
)

// ENTRY POINT

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	redisClient := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
	defer redisClient.Close()

	pgStorage, err := storage.NewPostgresStorage(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init PostgreSQL storage", zap.Error(err))
	}
	defer pgStorage.Close()

	// "rollback" undoes the last migration and exits instead of serving.
	if len(os.Args) > 1 && os.Args[1] == "rollback" {
		if err := storage.RollbackMigration(ctx, pgStorage.DB(), zapLogger); err != nil {
			zapLogger.Fatal("Failed to rollback migration", zap.Error(err))
		}
		return
	}

	if err := storage.RunMigrations(ctx, pgStorage.DB(), zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	geo, err := georate.Load(cfg.RatesPath, cfg.ZonesPath)
	if err != nil {
		zapLogger.Fatal("Failed to load geo-rate tables", zap.Error(err))
	}

	marketLoader := market.NewLoader(cfg.MarketDataDir, cfg.FetchTimeout, zapLogger)

	mailer := notify.NewMailer(cfg.SMTP, cfg.Admin.Email, zapLogger)
	leadLog := notify.NewLeadLog(cfg.LeadLogPath, zapLogger)
	tg, err := notify.NewTelegram(cfg.Admin.TelegramToken, cfg.Admin.ChannelID, cfg.Admin.ChatIDs, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init Telegram notifier", zap.Error(err))
	}
	dispatcher := notify.NewDispatcher(mailer, leadLog, tg, zapLogger)

	srv := server.New(
		cfg,
		pricing.DefaultPriceTable(),
		marketLoader,
		geo,
		pgStorage,
		redisClient,
		redisClient,
		dispatcher,
		zapLogger,
	)

	if err := srv.Run(ctx); err != nil {
		zapLogger.Fatal("Server stopped with error", zap.Error(err))
	}

	zapLogger.Info("Server shutdown gracefully")
}
