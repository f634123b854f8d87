package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan LiveStatus) (LiveStatus, bool) {
	t.Helper()

	select {
	case status, ok := <-ch:
		return status, ok
	case <-time.After(time.Second):
		t.Fatal("no update received")
		return LiveStatus{}, false
	}
}

func TestStatusFeed_PublishReachesSubscribers(t *testing.T) {
	feed := newStatusFeed()

	first, unsubFirst := feed.subscribe()
	defer unsubFirst()
	second, unsubSecond := feed.subscribe()
	defer unsubSecond()

	feed.publish(LiveStatus{Channel: testChannel, IsLive: true})

	for _, ch := range []<-chan LiveStatus{first, second} {
		status, ok := receive(t, ch)
		require.True(t, ok)
		assert.True(t, status.IsLive)
	}
}

func TestStatusFeed_UnsubscribeClosesChannel(t *testing.T) {
	feed := newStatusFeed()

	updates, unsubscribe := feed.subscribe()
	unsubscribe()
	unsubscribe()

	_, ok := receive(t, updates)
	assert.False(t, ok)

	feed.publish(LiveStatus{IsLive: true})
}

func TestStatusFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	feed := newStatusFeed()

	_, unsubscribe := feed.subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < feedBufferSize*3; i++ {
			feed.publish(LiveStatus{IsLive: i%2 == 0})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestStatusFeed_Close(t *testing.T) {
	feed := newStatusFeed()

	updates, unsubscribe := feed.subscribe()
	feed.close()
	unsubscribe()

	_, ok := receive(t, updates)
	assert.False(t, ok)

	late, _ := feed.subscribe()
	_, ok = receive(t, late)
	assert.False(t, ok, "subscribing to a closed feed yields a closed channel")
}

func TestStatusFeed_NilPublishIsNoop(t *testing.T) {
	var feed *statusFeed
	assert.NotPanics(t, func() { feed.publish(LiveStatus{}) })
}
