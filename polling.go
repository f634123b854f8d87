package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultPollInterval = 60 * time.Second

type notifier interface {
	Send(text string, kinds ...DestinationKind) int
}

// Tracker owns the live state of the tracked channel and the loop
// polling it.
type Tracker struct {
	channel  string
	interval time.Duration
	clock    clockwork.Clock
	tokens   *tokenManager
	streams  streamSource
	notifier notifier
	feed     *statusFeed

	checkMu sync.Mutex

	mu          sync.RWMutex
	isLive      bool
	lastChecked time.Time
}

func NewTracker(channel string, interval time.Duration, tokens *tokenManager, streams streamSource, n notifier, feed *statusFeed) *Tracker {
	if interval <= 0 {
		interval = defaultPollInterval
	}

	return &Tracker{
		channel:  channel,
		interval: interval,
		clock:    clockwork.NewRealClock(),
		tokens:   tokens,
		streams:  streams,
		notifier: n,
		feed:     feed,
	}
}

func newTrackerFromConfig(cfg Config, httpClient *http.Client, n notifier, feed *statusFeed) (*Tracker, error) {
	tokens := newTokenManager(cfg.TwitchClientID, cfg.TwitchClientSecret, httpClient)

	var streams streamSource
	if cfg.hasTwitchCredentials() {
		helixStreams, err := newHelixStreamSource(cfg.TwitchClientID, "", cfg.TwitchUsername, httpClient)
		if err != nil {
			return nil, err
		}
		streams = helixStreams
	} else {
		log.Warn("twitch credentials not set, live tracking disabled")
	}

	return NewTracker(cfg.TwitchUsername, cfg.PollInterval, tokens, streams, n, feed), nil
}

// Start runs the loop in the background. The returned function cancels
// the loop and waits for it to exit.
func (t *Tracker) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		t.Run(ctx)
	}()

	return func() {
		cancel()
		<-done
	}
}

// Run checks the stream status until ctx is cancelled. The pause is
// measured from the end of one check to the start of the next.
func (t *Tracker) Run(ctx context.Context) {
	log.WithFields(log.Fields{
		"channel":  t.channel,
		"interval": t.interval,
	}).Info("starting tracker loop")

	for {
		t.runCheck(ctx)

		select {
		case <-ctx.Done():
			log.Info("tracker loop stopping")
			return
		case <-t.clock.After(t.interval):
		}
	}
}

func (t *Tracker) runCheck(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("stream status check panicked")
		}
	}()

	if err := t.Check(ctx); err != nil {
		log.WithError(err).Error("checking stream status")
	}
}

// Check polls Twitch once and applies the observed transition. Missing
// credentials turn it into a no-op.
func (t *Tracker) Check(ctx context.Context) error {
	if t.streams == nil || !t.tokens.configured() {
		return nil
	}

	t.checkMu.Lock()
	defer t.checkMu.Unlock()

	if err := t.check(ctx, false); err != nil {
		trackerPollsTotal.WithLabelValues("error").Inc()
		return err
	}

	trackerPollsTotal.WithLabelValues("ok").Inc()
	return nil
}

func (t *Tracker) check(ctx context.Context, refreshed bool) error {
	token := t.tokens.cached()
	if token == "" {
		var err error
		if token, err = t.tokens.acquire(ctx); err != nil {
			return errors.Wrap(err, "acquiring app access token")
		}
	}

	snapshot, err := t.streams.liveStreams(token)
	switch {
	case errors.Is(err, errUnauthorized) && !refreshed:
		log.Info("twitch rejected app access token, refreshing")
		if _, err := t.tokens.acquire(ctx); err != nil {
			return errors.Wrap(err, "refreshing app access token")
		}
		return t.check(ctx, true)

	case errors.Is(err, errUnauthorized):
		return errors.Wrap(ErrAuth, "freshly issued app access token was rejected")

	case err != nil:
		return errors.Wrap(err, "fetching stream status")
	}

	t.apply(snapshot)
	return nil
}

func (t *Tracker) apply(snapshot streamSnapshot) {
	t.mu.Lock()
	t.lastChecked = t.clock.Now()
	wentLive := snapshot.Present && !t.isLive
	wentOffline := !snapshot.Present && t.isLive
	t.isLive = snapshot.Present
	status := t.statusLocked()
	t.mu.Unlock()

	logger := log.WithField("channel", t.channel)

	switch {
	case wentLive:
		trackerLive.Set(1)
		logger.Info("channel is live, sending notification")

		if sent := t.notifier.Send(formatLiveMessage(t.channel, snapshot), allDestinations...); sent == 0 {
			logger.Warn("live notification was not delivered to any destination")
		}
		t.feed.publish(status)

	case wentOffline:
		trackerLive.Set(0)
		logger.Info("channel went offline")
		t.feed.publish(status)
	}
}

func (t *Tracker) Status() LiveStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statusLocked()
}

func (t *Tracker) statusLocked() LiveStatus {
	return LiveStatus{
		Channel:     t.channel,
		IsLive:      t.isLive,
		LastChecked: t.lastChecked,
	}
}
