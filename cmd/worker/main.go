package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/shortlet-booking/internal/config"
	"github.com/iliyamo/shortlet-booking/internal/logger"
	"github.com/iliyamo/shortlet-booking/internal/notify"
	"github.com/iliyamo/shortlet-booking/internal/queue"
)

// The worker consumes booking events and delivers guest and housekeeping
// notifications.
func main() {
	_ = godotenv.Load()
	logger.Init("shortlet-worker")
	cfg := config.LoadWorker()

	var (
		email notify.EmailSender
		sms   notify.SMSSender
	)
	if s := notify.NewSendGridSender(cfg.Mail); s != nil {
		email = s
	} else {
		logger.Log.Warn("SENDGRID_API_KEY not set; email delivery disabled")
	}
	if s := notify.NewTwilioSender(cfg.SMS); s != nil {
		sms = s
	} else {
		logger.Log.Warn("Twilio not configured; SMS delivery disabled")
	}

	consumer := queue.NewConsumer(cfg.RabbitMQURL)
	notify.NewDispatcher(email, sms, cfg.Mail.Currency, cfg.Mail.HousekeepingEmail).Register(consumer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger.Log.Info("worker started")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Fatal("consumer stopped")
	}
	logger.Log.Info("worker stopped")
}
