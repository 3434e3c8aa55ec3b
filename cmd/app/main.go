package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"soulmine-bot/internal/bot"
	"soulmine-bot/internal/cache"
	"soulmine-bot/internal/config"
	"soulmine-bot/internal/httpserver"
	"soulmine-bot/internal/logging"
	"soulmine-bot/internal/metrics"
	"soulmine-bot/internal/notify"
	"soulmine-bot/internal/repo"
	"soulmine-bot/internal/users"
	"soulmine-bot/migrations"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting soulmine bot", "env", cfg.AppEnv, "database_driver", cfg.DatabaseDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricRegistry := metrics.Registry(cfg.MetricsNamespace)

	repository, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init repository: %w", err)
	}
	defer repository.Close()

	if err := repository.RunMigrations(ctx, migrations.Files); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrated")

	redisClient, err := cache.New(cache.Config{
		URL:      cfg.RedisURL,
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		UseTLS:   cfg.RedisTLS,
	}, logger)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("failed closing redis", "error", err)
		}
	}()

	// The user mirror is optional; without Redis every read goes to the store.
	var cacheStore cache.Store
	if err := redisClient.Ping(ctx); err != nil {
		logger.Warn("redis ping failed, user cache disabled", "error", err)
	} else {
		cacheStore = redisClient
	}
	userCache := cache.NewUserCache(cacheStore, cfg.UserCacheTTL, logger)

	userService := users.New(users.Config{
		Repo:    repository,
		Cache:   userCache,
		Metrics: metricRegistry,
	}, logger)

	tgClient, err := bot.New(bot.Config{
		Token:       cfg.TelegramBotToken,
		PollTimeout: cfg.TelegramPollTimeout,
		Metrics:     metricRegistry,
	}, logger)
	if err != nil {
		return fmt.Errorf("init telegram client: %w", err)
	}

	notifier := notify.New(notify.Config{
		Sender:        tgClient,
		Recipients:    repository,
		Metrics:       metricRegistry,
		SendTimeout:   cfg.BroadcastSendTimeout,
		RatePerSecond: cfg.BroadcastRatePerSecond,
	}, logger)

	botUsername := cfg.BotUsername
	if name := tgClient.Username(); name != "" {
		botUsername = name
	}
	handlers := bot.NewHandlers(userService, notifier, bot.Links{
		WebAppURL:       cfg.WebAppURL,
		MiniAppURL:      cfg.MiniAppURL,
		WalletURL:       cfg.WalletURL,
		BotUsername:     botUsername,
		SupportUsername: cfg.SupportUsername,
		SupportEmail:    cfg.SupportEmail,
		SupportPhone:    cfg.SupportPhone,
	}, logger)

	router := bot.NewRouter(cfg.IsAdmin, metricRegistry, logger)
	handlers.Routes(router)
	if err := router.Register(tgClient); err != nil {
		return fmt.Errorf("register bot routes: %w", err)
	}

	httpSrv := httpserver.New(cfg.HTTPListenAddr, logger, metricRegistry, httpserver.Dependencies{
		Notifier:   notifier,
		Users:      userService,
		Repository: repository,
		Redis:      redisClient,
	}, cfg.AdminAPIToken, cfg.HTTPBasePath)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil {
			errCh <- err
		}
	}()

	botCtx, botCancel := context.WithCancel(ctx)
	defer botCancel()
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		tgClient.Start(botCtx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}

	botCancel()
	<-botDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	return nil
}

func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repo.Repository, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		return repo.New(ctx, cfg.DatabaseURL, cfg.DatabaseSchema, logger)
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return repo.NewSQLite(ctx, cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}
