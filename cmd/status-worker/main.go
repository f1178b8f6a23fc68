package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/careloop/telehealth-scheduling/internal/booking"
	"github.com/careloop/telehealth-scheduling/internal/config"
	"github.com/careloop/telehealth-scheduling/internal/db"
	"github.com/careloop/telehealth-scheduling/internal/logger"
	redisclient "github.com/careloop/telehealth-scheduling/internal/redis"
	"github.com/careloop/telehealth-scheduling/internal/schedule"
	"github.com/careloop/telehealth-scheduling/internal/timezone"
)

// status-worker sweeps scheduled appointments whose end instant has passed
// and marks them missed. It runs until interrupted.
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

	log.Info("status-worker starting", zap.Duration("interval", cfg.WorkerInterval))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connection error", zap.Error(err))
	}
	defer rdb.Close()

	defaultZone, err := time.LoadLocation(cfg.DefaultTimeZone)
	if err != nil {
		log.Fatal("invalid default time zone", zap.Error(err))
	}

	tzService := timezone.NewService(defaultZone, log)
	viewCache := redisclient.NewViewCache(rdb, cfg.CacheTTL)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)

	schedRepo := schedule.NewPgRepository(pgPool)
	bookingRepo := booking.NewPgRepository(pgPool)
	svc := booking.NewService(bookingRepo, schedRepo, tzService, locker, viewCache, cfg, log, nil)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	sweep := func() {
		ctx, cancel := context.WithTimeout(rootCtx, time.Minute)
		defer cancel()

		marked, err := svc.MarkMissedPastDue(ctx)
		if err != nil {
			log.Error("sweep failed", zap.Error(err))
			return
		}
		if marked > 0 {
			log.Info("marked past-due appointments missed", zap.Int("count", marked))
		}
	}

	sweep()
	for {
		select {
		case <-rootCtx.Done():
			log.Info("status-worker stopping")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
