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
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"github.com/crucial707/meddevice/internal/config"
	"github.com/crucial707/meddevice/internal/db"
	"github.com/crucial707/meddevice/internal/middleware"
	"github.com/crucial707/meddevice/internal/repo"
	"github.com/crucial707/meddevice/internal/scheduler"
	"github.com/crucial707/meddevice/internal/tunnel"
	"github.com/crucial707/meddevice/internal/zalo"
)

const shutdownTimeout = 15 * time.Second

func newLogger(format string) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Database first; migrations before anything reads it.
	database, err := db.Connect(cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBUser, cfg.DBPass,
		cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()
	logger.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if err := db.Run(cfg.DatabaseURL()); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.UploadsDir(), 0o755); err != nil {
		return fmt.Errorf("uploads dir: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()
	settings := repo.NewSysConfigRepo(database)
	subscribers := repo.NewSubscriberRepo(database)

	token, err := settings.Get(ctx, repo.ConfigZaloToken)
	if err != nil {
		return fmt.Errorf("load bot token: %w", err)
	}
	client := zalo.NewClient(cfg.ZaloAPIBase, token)
	bot := zalo.NewBot(client, subscribers, logger)
	sched := scheduler.New(
		repo.NewDeviceRepo(database),
		repo.NewStatsRepo(database),
		repo.NewScheduleRepo(database),
		client, loc, logger,
	)

	svc := services{
		Logger:          logger,
		Zalo:            client,
		Bot:             bot,
		Notifier:        zalo.NewNotifier(client, repo.NewUserRepo(database), subscribers, loc, logger),
		Tester:          sched,
		AuthLimiter:     middleware.AuthRateLimiter(),
		PasswordLimiter: middleware.DevicePasswordRateLimiter(),
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.TunnelEnabled {
		sup := tunnel.NewSupervisor(tunnel.NewBackend(cfg.TunnelBackendURL), settings, cfg.CloudflaredPath, cfg.Port, logger)
		svc.Tunnel = sup
		g.Go(func() error {
			// A lost tunnel leaves the local server usable.
			if err := sup.Run(gctx); err != nil {
				logger.Error("tunnel stopped", "error", err)
			}
			return nil
		})
	}

	if err := sched.Start(gctx); err != nil {
		return err
	}
	g.Go(func() error {
		return zalo.NewPoller(client, bot, cfg.ZaloPollInterval, logger).Run(gctx)
	})
	for _, l := range []*middleware.IPRateLimiter{svc.AuthLimiter, svc.PasswordLimiter} {
		g.Go(func() error {
			l.Cleanup(gctx, time.Minute, 10*time.Minute)
			return nil
		})
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(database, cfg, svc),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	g.Go(func() error {
		tls := cfg.TLSCertFile != ""
		logger.Info("starting server", "port", cfg.Port, "tls", tls, "timezone", loc.String())
		var err error
		if tls {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
