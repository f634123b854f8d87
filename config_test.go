package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAdminIDs(t *testing.T) {
	ids := parseAdminIDs(" 1001, 1002,,abc, -5 ")

	assert.Len(t, ids, 3)
	for _, id := range []int64{1001, 1002, -5} {
		assert.Contains(t, ids, id)
	}

	assert.Empty(t, parseAdminIDs(""))
}

func TestConfig_HasTwitchCredentials(t *testing.T) {
	assert.True(t, Config{TwitchClientID: "id", TwitchClientSecret: "secret"}.hasTwitchCredentials())
	assert.False(t, Config{TwitchClientID: "id"}.hasTwitchCredentials())
	assert.False(t, Config{}.hasTwitchCredentials())
}
