package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/Luzifer/go_helpers/v2/str"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	serviceName          = "Akimary Hub API"
	maxRequestBodyBytes  = 64 << 10
	maxSuggestionLength  = 2000
	healthCheckTimeout   = 2 * time.Second
	initDataHeader       = "init_data"
	initDataHeaderHyphen = "Init-Data"
)

func newApp(cfg Config, db *store, tracker *Tracker, n notifier, feed *statusFeed) *App {
	return &App{
		config:   cfg,
		store:    db,
		tracker:  tracker,
		notifier: n,
		feed:     feed,
		adminIDs: parseAdminIDs(cfg.AdminIDs),
		upgrader: newUpgrader(cfg.FrontendURL),
	}
}

func (app *App) rootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
}

func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := app.store.Ping(ctx); err != nil {
		log.WithError(err).Error("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (app *App) liveStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.tracker.Status())
}

func (app *App) createSuggestionHandler(w http.ResponseWriter, r *http.Request) {
	var req suggestionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	values, ok := verifyInitData(req.InitData, app.config.TelegramBotToken)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid Telegram authentication")
		return
	}

	user, err := parseInitUser(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	content := strings.TrimSpace(req.Content)
	switch {
	case content == "":
		writeError(w, http.StatusBadRequest, "Suggestion must not be empty")
		return
	case len([]rune(content)) > maxSuggestionLength:
		writeError(w, http.StatusBadRequest, "Suggestion is too long")
		return
	}

	sug, err := app.store.AddSuggestion(r.Context(), user.ID, user.displayName(), content)
	if err != nil {
		log.WithError(err).WithField("user", user.ID).Error("storing suggestion")
		writeError(w, http.StatusInternalServerError, "Could not store suggestion")
		return
	}

	log.WithFields(log.Fields{"user": user.ID, "id": sug.ID}).Info("suggestion stored")
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "id": sug.ID})
}

func (app *App) listSuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	initData := r.Header.Get(initDataHeader)
	if initData == "" {
		initData = r.Header.Get(initDataHeaderHyphen)
	}

	values, ok := verifyInitData(initData, app.config.TelegramBotToken)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid Telegram authentication")
		return
	}

	user, err := parseInitUser(values)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, isAdmin := app.adminIDs[user.ID]; !isAdmin {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	suggestions, err := app.store.ListSuggestions(r.Context())
	if err != nil {
		log.WithError(err).Error("listing suggestions")
		writeError(w, http.StatusInternalServerError, "Could not load suggestions")
		return
	}

	writeJSON(w, http.StatusOK, suggestions)
}

func (app *App) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := app.store.Subscribe(r.Context(), email)
	if err != nil {
		log.WithError(err).Error("storing subscriber")
		writeError(w, http.StatusInternalServerError, "Could not store subscription")
		return
	}

	if !created {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_subscribed", "message": "You are already subscribed!"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Subscription confirmed!"})
}

func (app *App) adminNotifyHandler(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if app.config.AdminID == "" || strings.TrimSpace(req.AdminID) != app.config.AdminID {
		log.WithField("admin_id", req.AdminID).Warn("rejected notify request")
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "Message must not be empty")
		return
	}

	targets := req.Targets
	if len(targets) == 0 {
		targets = allDestinations
	}

	known := []string{string(DestinationChannel), string(DestinationChat)}
	for _, target := range targets {
		if !str.StringInSlice(string(target), known) {
			writeError(w, http.StatusBadRequest, "Unknown target "+strconv.Quote(string(target)))
			return
		}
	}

	sent := app.notifier.Send(message, targets...)
	if sent == 0 {
		writeError(w, http.StatusBadGateway, "Failed to send notification")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "sent": sent})
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", errors.Wrap(ErrValidation, "email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.Wrap(ErrValidation, "email is not valid")
	}

	return email, nil
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, target interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return errors.Wrap(ErrValidation, "malformed JSON body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("writing JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
