package main

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

const feedBufferSize = 4

// statusFeed fans live status transitions out to subscribers. Publishing
// never blocks: a subscriber with a full buffer misses the update.
type statusFeed struct {
	mu          sync.Mutex
	subscribers map[chan LiveStatus]struct{}
	closed      bool
}

func newStatusFeed() *statusFeed {
	return &statusFeed{subscribers: make(map[chan LiveStatus]struct{})}
}

func (f *statusFeed) subscribe() (<-chan LiveStatus, func()) {
	ch := make(chan LiveStatus, feedBufferSize)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		close(ch)
		return ch, func() {}
	}
	f.subscribers[ch] = struct{}{}

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
	}
}

func (f *statusFeed) publish(status LiveStatus) {
	if f == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subscribers {
		select {
		case ch <- status:
		default:
			log.Debug("live feed subscriber too slow, dropping update")
		}
	}
}

// close ends all subscriptions, used during shutdown.
func (f *statusFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for ch := range f.subscribers {
		delete(f.subscribers, ch)
		close(ch)
	}
}
