package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	enshttp "github.com/ensembleapp/ensemble/internal/adapter/http"
	ensnats "github.com/ensembleapp/ensemble/internal/adapter/nats"
	"github.com/ensembleapp/ensemble/internal/adapter/oracle"
	"github.com/ensembleapp/ensemble/internal/adapter/otel"
	"github.com/ensembleapp/ensemble/internal/adapter/postgres"
	"github.com/ensembleapp/ensemble/internal/adapter/ristretto"
	"github.com/ensembleapp/ensemble/internal/adapter/smtp"
	"github.com/ensembleapp/ensemble/internal/adapter/ws"
	"github.com/ensembleapp/ensemble/internal/config"
	"github.com/ensembleapp/ensemble/internal/logger"
	"github.com/ensembleapp/ensemble/internal/middleware"
	"github.com/ensembleapp/ensemble/internal/port/messagequeue"
	"github.com/ensembleapp/ensemble/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"reminder_tz", cfg.Reminder.Timezone,
	)

	ctx := context.Background()

	// --- Telemetry ---
	var metrics *otel.Metrics
	if cfg.Otel.Enabled {
		shutdown, err := otel.InitMeter(ctx, cfg.Logging.Service, cfg.Otel.Endpoint)
		if err != nil {
			return fmt.Errorf("otel: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()

		metrics, err = otel.NewMetrics()
		if err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
	}

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	directoryCache, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer directoryCache.Close()

	// NATS is optional: without it, notification fan-out runs inline.
	var queue messagequeue.Queue
	if q, err := ensnats.Connect(ctx, cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, dispatching notifications inline", "error", err)
	} else {
		queue = q
		defer func() { _ = q.Close() }()
	}

	mail := smtp.New(cfg.SMTP)
	credentials := oracle.New(cfg.Oracle)
	hub := ws.NewHub()
	store := postgres.NewStore(pool)

	// --- Services ---
	directory := service.NewDirectoryService(store, directoryCache, cfg.Auth.DirectoryTTL)
	identitySvc := service.NewIdentityService(credentials, store, directory, cfg.Auth.PlatformAdmins)
	notifier := service.NewNotificationService(store, queue, hub, metrics)
	tenantSvc := service.NewTenantService(store, directory, hub)
	teamSvc := service.NewTeamService(store, notifier)

	if queue != nil {
		cancelDispatch, err := notifier.StartDispatchSubscriber(ctx)
		if err != nil {
			return fmt.Errorf("dispatch subscriber: %w", err)
		}
		defer cancelDispatch()
	}

	reminderSvc, err := service.NewReminderService(store, mail, notifier, metrics, cfg.Reminder)
	if err != nil {
		return fmt.Errorf("reminder: %w", err)
	}
	if err := reminderSvc.Start(); err != nil {
		return fmt.Errorf("reminder: %w", err)
	}
	defer reminderSvc.Stop()

	// --- HTTP ---
	handlers := &enshttp.Handlers{
		Tenants:       tenantSvc,
		Team:          teamSvc,
		Notifications: notifier,
		Directory:     directory,
		Store:         store,
		Hub:           hub,
		Queue:         queue,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(enshttp.SecurityHeaders)
	r.Use(enshttp.CORS(cfg.Server.CORSOrigin))
	r.Use(enshttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Otel.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}
	r.Use(middleware.Auth(identitySvc))

	enshttp.MountRoutes(r, handlers, middleware.NewGuard(store))

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
