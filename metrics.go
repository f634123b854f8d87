package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	trackerPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_polls_total",
			Help: "Stream status checks by result",
		},
		[]string{"result"},
	)

	trackerLive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_live",
			Help: "Whether the tracked channel is currently live (1) or not (0)",
		},
	)

	twitchTokenRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "twitch_token_requests_total",
			Help: "App access token exchanges by status",
		},
		[]string{"status"},
	)

	notificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Telegram messages by destination kind and status",
		},
		[]string{"destination", "status"},
	)
)
