package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"draw-royale/internal/config"
	"draw-royale/internal/db"
	"draw-royale/internal/game"
	"draw-royale/internal/notify"
	"draw-royale/internal/server"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.WithError(err).Warn("failed to load .env")
	}
	cfg := config.Load()
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	channel, err := openChannel(ctx, cfg, logger)
	if err != nil {
		return err
	}

	svc := game.NewService(store, game.Options{
		RoundDuration:     time.Duration(cfg.RoundSeconds) * time.Second,
		DefaultMaxPlayers: cfg.DefaultMaxPlayers,
		DefaultMaxRounds:  cfg.DefaultMaxRounds,
		AppURL:            cfg.AppURL,
		Logger:            logger,
	})
	monitor := game.NewMonitor(svc, time.Duration(cfg.TimeoutScanSeconds)*time.Second)
	dispatcher := game.NewDispatcher(svc, notify.NewMailer(channel, logger), time.Duration(cfg.OutboxPollSeconds)*time.Second)
	digest := game.NewDigestScheduler(svc, cfg.DigestHourUTC)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(svc, cfg, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.WithField("addr", httpServer.Addr).Info("draw-royale server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		monitor.Watch(ctx)
		return monitor.Run(ctx)
	})
	group.Go(func() error {
		return dispatcher.Run(ctx)
	})
	group.Go(func() error {
		return digest.Run(ctx)
	})
	return group.Wait()
}

func openStore(cfg config.Config, logger *logrus.Logger) (game.Store, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set, rooms are kept in memory")
		return game.NewMemoryStore(), nil
	}
	conn, err := db.Open(cfg.DatabaseURL, db.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		return nil, err
	}
	return db.NewStore(conn), nil
}

func openChannel(ctx context.Context, cfg config.Config, logger *logrus.Logger) (notify.Channel, error) {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR is not set, notifications are logged only")
		return notify.NewLogChannel(logger), nil
	}
	client, err := notify.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	logger.WithField("queue", cfg.NotifyQueue).Info("notifications go to redis")
	return notify.NewRedisChannel(client, cfg.NotifyQueue), nil
}
