// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/JudeDesigns/attendance-sub000/internal/attendance"
	"github.com/JudeDesigns/attendance-sub000/internal/config"
	"github.com/JudeDesigns/attendance-sub000/internal/notify"
	"github.com/JudeDesigns/attendance-sub000/internal/routes"
	"github.com/JudeDesigns/attendance-sub000/internal/scheduler"
	"github.com/JudeDesigns/attendance-sub000/internal/storage"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 15 * time.Second
	notifyTimeout   = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := storage.OpenDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	repo := storage.NewRepository(db)
	sched := scheduler.New(logger)
	notifier := notify.NewAsync(&notify.LogDispatcher{Logger: logger}, logger, notifyTimeout)
	svc := attendance.NewService(repo, repo, repo, notifier, attendance.Options{
		Logger:          logger,
		Location:        cfg.Location(),
		Scheduler:       sched,
		EnforceSchedule: cfg.EnforceSchedule,
	})

	if !strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: routes.NewRouter(svc, routes.Options{
			JWTSecret: cfg.JWTSecret,
			Logger:    logger,
			Location:  cfg.Location(),
			DB:        db,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	sched.ScheduleRecurring(gctx, "break-reminders", cfg.ReminderInterval, func(ctx context.Context) error {
		_, err := svc.SendBreakReminders(ctx)
		return err
	})
	sched.ScheduleRecurring(gctx, "stuck-sessions", cfg.StuckSweepInterval, func(ctx context.Context) error {
		_, err := svc.RunStuckSessionSweep(ctx)
		return err
	})

	g.Go(func() error {
		logger.Info("server running", "addr", srv.Addr, "db_driver", cfg.DB.Driver, "timezone", cfg.TimeZone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	sched.Stop()
	sched.Wait()
	notifier.Wait()
	logger.Info("shutdown complete")
	return err
}
