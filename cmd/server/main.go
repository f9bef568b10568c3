package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-checkout/internal/backend"
	"github.com/iliyamo/cinema-checkout/internal/checkout"
	"github.com/iliyamo/cinema-checkout/internal/config"
	"github.com/iliyamo/cinema-checkout/internal/database"
	"github.com/iliyamo/cinema-checkout/internal/handler"
	"github.com/iliyamo/cinema-checkout/internal/jobs"
	"github.com/iliyamo/cinema-checkout/internal/logger"
	"github.com/iliyamo/cinema-checkout/internal/metrics"
	"github.com/iliyamo/cinema-checkout/internal/middleware"
	"github.com/iliyamo/cinema-checkout/internal/model"
	"github.com/iliyamo/cinema-checkout/internal/payment"
	"github.com/iliyamo/cinema-checkout/internal/presence"
	"github.com/iliyamo/cinema-checkout/internal/queue"
	"github.com/iliyamo/cinema-checkout/internal/repository"
	"github.com/iliyamo/cinema-checkout/internal/router"
	"github.com/iliyamo/cinema-checkout/internal/seatmap"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Env, cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Redis is optional: without it holds stay in this process and the
	// showtime cache and rate limit are off.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Warn("redis unavailable; running single node", "addr", cfg.Redis.Addr)
	} else {
		defer rdb.Close()
	}

	layout := seatmap.Layout{Rows: cfg.Seats.Rows, SeatsPerRow: cfg.Seats.PerRow}
	api := backend.New(cfg.BackendURL, cfg.BackendTimeout, log)
	showtimes := backend.NewCachedShowtimes(api, rdb, cfg.ShowtimeCacheTTL, cfg.CachePrefix, log)

	var hub presence.Hub
	if rdb != nil {
		locks := presence.NewLockStore(rdb, cfg.Seats.HoldTTL, "seatlock")
		hub = presence.NewRedisHub(rdb, locks, api, layout, 0, log)
	} else {
		hub = presence.NewMemoryHub(api, layout, cfg.Seats.HoldTTL)
	}

	g, gctx := errgroup.WithContext(ctx)

	var (
		db       *sql.DB
		recorder checkout.Recorder
		attempts *handler.AttemptHandler
	)
	if cfg.DB.Enabled() {
		db, err = database.Open(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		repo := repository.NewAttemptRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		recorder = repo
		attempts = &handler.AttemptHandler{Repo: repo, Log: log}

		sched, err := jobs.NewRetention(repo, cfg.DB.AttemptRetention, nil, log).Start(gctx, cfg.DB.PurgeEvery)
		if err != nil {
			return fmt.Errorf("start retention job: %w", err)
		}
		defer func() { _ = sched.Shutdown() }()
	} else {
		log.Info("DB_HOST not set; checkout attempts are not recorded")
	}

	var notifier checkout.Notifier
	if cfg.RabbitMQURL != "" {
		pub := queue.NewPublisher(cfg.RabbitMQURL, log)
		defer pub.Wait()
		notifier = pub
		consumer := queue.NewConsumer(cfg.RabbitMQURL, hub, func(s model.BookingStatus) { m.BookingEvent(string(s)) }, log)
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.RegisterRoutes(e, router.Deps{
		JWTSecret:   cfg.JWTSecret,
		Log:         log,
		Metrics:     m,
		Gatherer:    reg,
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimit, rdb, clockwork.NewRealClock(), log),
		Health:      &handler.HealthHandler{DB: db, Redis: rdb},
		Showtimes:   &handler.ShowtimeHandler{Showtimes: showtimes, Hub: hub, Layout: layout, Log: log},
		Checkout: &handler.CheckoutHandler{
			Showtimes:   showtimes,
			Hub:         hub,
			Layout:      layout,
			MaxSeats:    cfg.Seats.MaxPerBooking,
			HoldRefresh: cfg.Seats.HoldTTL / 2,
			Bookings:    api,
			Payments:    api,
			Notifier:    notifier,
			Recorder:    recorder,
			Metrics:     m,
			Log:         log,
		},
		Payments: &handler.PaymentHandler{
			Resolver: payment.NewResolver(api, payment.Options{
				SuccessPath:  cfg.Payment.SuccessPath,
				SuccessAfter: cfg.Payment.SuccessCountdown,
				FailurePath:  cfg.Payment.FailurePath,
				FailureAfter: cfg.Payment.FailureCountdown,
			}, log),
			Clock:   clockwork.NewRealClock(),
			Metrics: m,
			Log:     log,
		},
		Attempts: attempts,
	})

	addr := ":" + cfg.Port
	g.Go(func() error {
		log.Info("listening", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
