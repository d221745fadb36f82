package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shortlet-booking/internal/config"
	"github.com/iliyamo/shortlet-booking/internal/database"
	"github.com/iliyamo/shortlet-booking/internal/logger"
	"github.com/iliyamo/shortlet-booking/internal/queue"
	"github.com/iliyamo/shortlet-booking/internal/repository"
	"github.com/iliyamo/shortlet-booking/internal/reservation"
	"github.com/iliyamo/shortlet-booking/internal/router"
)

func main() {
	_ = godotenv.Load()
	logger.Init("shortlet-api")
	cfg := config.Load()

	var store reservation.Store
	switch cfg.StoreDriver {
	case "memory":
		logger.Log.Warn("using in-memory store; data is lost on restart")
		store = repository.NewMemoryStore()
	default:
		db, err := database.Open(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("database unavailable")
		}
		defer db.Close()
		store = repository.NewMySQLStore(db)
	}

	var (
		notifier     reservation.Notifier
		housekeeping reservation.Housekeeping
	)
	if cfg.RabbitMQURL != "" {
		pub := queue.NewPublisher(cfg.RabbitMQURL)
		defer pub.Close()
		notifier, housekeeping = pub, pub
	} else {
		logger.Log.Warn("RABBITMQ_URL not set; booking events will not be published")
	}

	svc := reservation.NewService(store, notifier, housekeeping, cfg.Booking.Settings())

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	e := router.New(router.Deps{
		Service:   svc,
		Config:    cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
	})

	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(cfg.ExpirySchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		n, err := svc.ExpireStalePending(ctx, cfg.Booking.PendingTTL)
		if err != nil {
			logger.Log.WithError(err).Error("stale pending sweep failed")
			return
		}
		if n > 0 {
			logger.Log.WithField("expired", n).Info("stale pending bookings cancelled")
		}
	})
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to schedule stale pending sweep")
	}
	c.Start()

	co := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           co.Handler(e),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		logger.Log.WithFields(logrus.Fields{"addr": srv.Addr, "env": cfg.Env, "store": cfg.StoreDriver}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down")
	<-c.Stop().Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("graceful shutdown failed")
	}
}
