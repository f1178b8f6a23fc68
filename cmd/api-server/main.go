package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/careloop/telehealth-scheduling/internal/api"
	"github.com/careloop/telehealth-scheduling/internal/booking"
	"github.com/careloop/telehealth-scheduling/internal/config"
	"github.com/careloop/telehealth-scheduling/internal/db"
	"github.com/careloop/telehealth-scheduling/internal/logger"
	"github.com/careloop/telehealth-scheduling/internal/metrics"
	redisclient "github.com/careloop/telehealth-scheduling/internal/redis"
	"github.com/careloop/telehealth-scheduling/internal/schedule"
	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger init error: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("api-server starting",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("connected to postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to redis")

	defaultZone, err := time.LoadLocation(cfg.DefaultTimeZone)
	if err != nil {
		log.Fatal("invalid default time zone", zap.String("zone", cfg.DefaultTimeZone), zap.Error(err))
	}

	dayStart, err := timezone.ParseWallClock(cfg.DayStart)
	if err != nil {
		log.Fatal("invalid DAY_START", zap.String("value", cfg.DayStart), zap.Error(err))
	}
	dayEnd, err := timezone.ParseWallClock(cfg.DayEnd)
	if err != nil {
		log.Fatal("invalid DAY_END", zap.String("value", cfg.DayEnd), zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tzService := timezone.NewService(defaultZone, log)
	viewCache := redisclient.NewViewCache(rdb, cfg.CacheTTL)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)

	schedRepo := schedule.NewPgRepository(pgPool)
	assembler := schedule.NewAssembler(tzService, cfg.SlotDuration, dayStart, dayEnd)
	calendar := schedule.NewCalendarService(schedRepo, tzService, assembler, viewCache, log, metrics.NewCalendarMetrics(registry))

	bookingRepo := booking.NewPgRepository(pgPool)
	bookings := booking.NewService(bookingRepo, schedRepo, tzService, locker, viewCache, cfg, log, metrics.NewBookingMetrics(registry))

	router := api.NewRouter(api.RouterConfig{
		Calendar: calendar,
		Booking:  bookings,
		PgPool:   pgPool,
		Redis:    rdb,
		Logger:   log,
		Registry: registry,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("http server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}

	log.Info("api-server stopped")
}
