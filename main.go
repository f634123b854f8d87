package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config, err := loadConfig()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	level, err := log.ParseLevel(config.LogLevel)
	if err != nil {
		log.WithError(err).Fatal("parsing log-level")
	}
	log.SetLevel(level)

	httpClient := &http.Client{Timeout: config.HTTPTimeout}

	db, err := newStore(config.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("opening store")
	}

	var bot *tgbotapi.BotAPI
	if config.TelegramBotToken != "" {
		if bot, err = newBotClient(config.TelegramBotToken, tgbotapi.APIEndpoint, httpClient); err != nil {
			log.WithError(err).Error("telegram bot unavailable, notifications disabled")
		} else {
			log.WithField("bot", bot.Self.UserName).Info("authorized telegram bot")
		}
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, notifications and Mini-App auth disabled")
	}

	dispatcher := NewDispatcher(bot, config.TelegramChannelID, config.TelegramChatID)
	feed := newStatusFeed()

	tracker, err := newTrackerFromConfig(config, httpClient, dispatcher, feed)
	if err != nil {
		log.WithError(err).Fatal("creating tracker")
	}

	app := newApp(config, db, tracker, dispatcher, feed)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stopTracker := tracker.Start(ctx)

	srv := &http.Server{
		Addr:              config.Listen,
		Handler:           app.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", config.Listen).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server error")
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down gracefully")
	stopTracker()
	feed.close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown")
	}

	if err := db.Close(); err != nil {
		log.WithError(err).Error("closing store")
	}

	log.Info("shutdown complete")
}
