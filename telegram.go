package main

import (
	"fmt"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	placeholderTitle    = "no title"
	placeholderCategory = "no category"
)

// Dispatcher delivers messages to the configured Telegram destinations.
type Dispatcher struct {
	bot          *tgbotapi.BotAPI
	destinations map[DestinationKind]string
}

type destination struct {
	kind   DestinationKind
	chatID string
}

func newBotClient(token, apiEndpoint string, httpClient *http.Client) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, apiEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "creating telegram bot")
	}
	return bot, nil
}

func NewDispatcher(bot *tgbotapi.BotAPI, channelID, chatID string) *Dispatcher {
	destinations := make(map[DestinationKind]string)
	if channelID != "" {
		destinations[DestinationChannel] = channelID
	}
	if chatID != "" {
		destinations[DestinationChat] = chatID
	}

	return &Dispatcher{bot: bot, destinations: destinations}
}

func (d *Dispatcher) resolve(kinds ...DestinationKind) []destination {
	var (
		targets []destination
		seen    = make(map[string]bool)
	)

	for _, kind := range kinds {
		chatID, ok := d.destinations[kind]
		if !ok || seen[chatID] {
			continue
		}
		seen[chatID] = true
		targets = append(targets, destination{kind: kind, chatID: chatID})
	}

	return targets
}

// Send delivers text to every configured destination of the requested
// kinds and returns the number of successful deliveries.
func (d *Dispatcher) Send(text string, kinds ...DestinationKind) int {
	targets := d.resolve(kinds...)
	if len(targets) == 0 {
		log.Warn("no telegram destinations configured, skipping message")
		return 0
	}

	if d.bot == nil {
		log.Warn("telegram bot not configured, skipping message")
		return 0
	}

	sent := 0
	for _, target := range targets {
		logger := log.WithFields(log.Fields{
			"destination": target.kind,
			"chat":        target.chatID,
		})

		if _, err := d.bot.Send(newMarkdownMessage(target.chatID, text)); err != nil {
			logger.WithError(err).Error("sending telegram message")
			notificationsSentTotal.WithLabelValues(string(target.kind), "error").Inc()
			continue
		}

		logger.Info("telegram message sent")
		notificationsSentTotal.WithLabelValues(string(target.kind), "ok").Inc()
		sent++
	}

	return sent
}

func newMarkdownMessage(chatID, text string) tgbotapi.MessageConfig {
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	}

	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func formatLiveMessage(channel string, stream streamSnapshot) string {
	displayName := stream.UserName
	if displayName == "" {
		displayName = channel
	}

	title := stream.Title
	if title == "" {
		title = placeholderTitle
	}

	game := stream.GameName
	if game == "" {
		game = placeholderCategory
	}

	return fmt.Sprintf("🔴 *%s is live!*\n\n🎬 *Stream:* %s\n🎮 *Category:* %s\n\n🚀 Join now: %s",
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, displayName),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, title),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, game),
		tgbotapi.EscapeText(tgbotapi.ModeMarkdown, twitchChannelURL+channel))
}
