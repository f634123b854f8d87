package main

import (
	"time"

	"github.com/gorilla/websocket"
)

type DestinationKind string

const (
	DestinationChannel DestinationKind = "channel"
	DestinationChat    DestinationKind = "chat"
)

var allDestinations = []DestinationKind{DestinationChannel, DestinationChat}

type App struct {
	config   Config
	store    *store
	tracker  *Tracker
	notifier notifier
	feed     *statusFeed
	adminIDs map[int64]struct{}
	upgrader websocket.Upgrader
}

// LiveStatus is the public view of the tracker state.
type LiveStatus struct {
	Channel     string    `json:"channel"`
	IsLive      bool      `json:"is_live"`
	LastChecked time.Time `json:"last_checked"`
}

// streamSnapshot describes a single poll result and is not retained.
type streamSnapshot struct {
	Present  bool
	Title    string
	GameName string
	UserName string
}

type TwitchTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type Suggestion struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type suggestionRequest struct {
	Content  string `json:"content"`
	InitData string `json:"init_data"`
}

type subscribeRequest struct {
	Email string `json:"email"`
}

type notifyRequest struct {
	Message string            `json:"message"`
	AdminID string            `json:"admin_id"`
	Targets []DestinationKind `json:"targets"`
}
