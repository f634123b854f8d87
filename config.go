package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/Luzifer/rconfig/v2"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const minPollInterval = 5 * time.Second

type Config struct {
	TwitchClientID     string `flag:"twitch-client-id" env:"TWITCH_CLIENT_ID" default:"" description:"Client ID of the Twitch app used for the stream status lookups"`
	TwitchClientSecret string `flag:"twitch-client-secret" env:"TWITCH_CLIENT_SECRET" default:"" description:"Client secret of the Twitch app"`
	TwitchUsername     string `flag:"twitch-username" env:"TWITCH_USERNAME" default:"akimaryy" description:"Twitch login of the tracked channel"`

	TelegramBotToken  string `flag:"telegram-bot-token" env:"TELEGRAM_BOT_TOKEN" default:"" description:"Telegram bot token, also used to verify Mini-App init data"`
	TelegramChannelID string `flag:"telegram-channel-id" env:"TELEGRAM_CHANNEL_ID" default:"" description:"Telegram channel to notify (numeric ID or @username)"`
	TelegramChatID    string `flag:"telegram-chat-id" env:"TELEGRAM_CHAT_ID" default:"" description:"Telegram chat to notify (numeric ID or @username)"`

	AdminIDs    string `flag:"admin-ids" env:"ADMIN_IDS" default:"" description:"Comma separated Telegram user IDs allowed to read suggestions"`
	AdminID     string `flag:"admin-id" env:"ADMIN_ID" default:"" description:"Admin ID accepted by the notify endpoint"`
	FrontendURL string `flag:"frontend-url" env:"FRONTEND_URL" default:"*" description:"Origin allowed for CORS requests"`

	DatabasePath string        `flag:"database-path" env:"DATABASE_PATH" default:"./data.db" description:"Path of the SQLite database"`
	Listen       string        `flag:"listen" env:"LISTEN" default:":8000" description:"Port/IP to listen on"`
	PollInterval time.Duration `flag:"poll-interval" env:"POLL_INTERVAL" default:"60s" description:"Pause between two stream status checks"`
	HTTPTimeout  time.Duration `flag:"http-timeout" env:"HTTP_TIMEOUT" default:"10s" description:"Timeout for outbound HTTP requests"`
	LogLevel     string        `flag:"log-level" env:"LOG_LEVEL" default:"info" description:"Log level (debug, info, warn, error, fatal)"`
}

func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug(".env file not found, using environment variables")
	}

	var cfg Config
	if err := rconfig.ParseAndValidate(&cfg); err != nil {
		return cfg, errors.Wrap(err, "parsing configuration")
	}

	if cfg.PollInterval < minPollInterval {
		log.WithField("interval", cfg.PollInterval).Warn("poll interval too short, using minimum")
		cfg.PollInterval = minPollInterval
	}

	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}

	cfg.TwitchUsername = strings.ToLower(strings.TrimSpace(cfg.TwitchUsername))
	if cfg.TwitchUsername == "" {
		return cfg, errors.Wrap(ErrConfig, "twitch username must not be empty")
	}

	return cfg, nil
}

func (c Config) hasTwitchCredentials() bool {
	return c.TwitchClientID != "" && c.TwitchClientSecret != ""
}

// parseAdminIDs reads the comma separated allow-list. Entries which are
// not numeric are skipped.
func parseAdminIDs(raw string) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.WithField("value", part).Warn("ignoring non-numeric admin ID")
			continue
		}
		ids[id] = struct{}{}
	}
	return ids
}
