package main

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsReadLimit    = 512
)

func newUpgrader(frontendURL string) websocket.Upgrader {
	return websocket.Upgrader{
		HandshakeTimeout: 15 * time.Second,
		CheckOrigin:      newCheckOrigin(frontendURL),
	}
}

// newCheckOrigin allows requests without Origin header and, unless every
// origin is allowed, only the configured frontend origin.
func newCheckOrigin(frontendURL string) func(r *http.Request) bool {
	allowed := extractOrigin(frontendURL)

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || frontendURL == "*" {
			return true
		}

		if strings.EqualFold(origin, allowed) {
			return true
		}

		log.WithFields(log.Fields{
			"origin":      origin,
			"remote_addr": r.RemoteAddr,
		}).Warn("websocket origin rejected")
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// liveFeedHandler sends the current live status and then every
// transition until the client goes away or the feed is closed.
func (app *App) liveFeedHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Debug("upgrading live feed connection")
		return
	}
	defer conn.Close()

	logger := log.WithFields(log.Fields{
		"conn":        uuid.NewString(),
		"remote_addr": r.RemoteAddr,
	})
	logger.Debug("live feed client connected")
	defer logger.Debug("live feed client disconnected")

	updates, unsubscribe := app.feed.subscribe()
	defer unsubscribe()

	conn.SetReadLimit(wsReadLimit)

	// Clients never send data, reading only detects the disconnect.
	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeStatus(conn, app.tracker.Status()); err != nil {
		logger.WithError(err).Debug("writing initial live status")
		return
	}

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-disconnected:
			return

		case status, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			if err := writeStatus(conn, status); err != nil {
				logger.WithError(err).Debug("writing live status")
				return
			}

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}

func writeStatus(conn *websocket.Conn, status LiveStatus) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(status)
}
