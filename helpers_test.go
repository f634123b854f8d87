package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	testBotToken = "123456:TEST-token"
	testChannel  = "akimaryy"
)

type sentMessage struct {
	Text  string
	Kinds []DestinationKind
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []sentMessage
	result   int
}

func (n *recordingNotifier) Send(text string, kinds ...DestinationKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, sentMessage{Text: text, Kinds: kinds})
	return n.result
}

func (n *recordingNotifier) sent() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	result := make([]sentMessage, len(n.messages))
	copy(result, n.messages)
	return result
}

// fakeTwitch serves the token endpoint under /oauth2/token and the Helix
// streams endpoint under /helix/streams.
type fakeTwitch struct {
	mu sync.Mutex

	live         []map[string]interface{}
	tokenStatus  int
	streamStatus int
	validToken   string
	rejectAll    bool

	issued      int
	tokenCalls  int
	streamCalls int
}

func (f *fakeTwitch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/oauth2/token":
		f.tokenCalls++
		if r.FormValue("grant_type") != "client_credentials" || r.FormValue("client_id") == "" || r.FormValue("client_secret") == "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":400,"message":"missing params"}`))
			return
		}
		if f.tokenStatus != 0 && f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			_, _ = w.Write([]byte(`{"status":500,"message":"boom"}`))
			return
		}
		f.issued++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token-" + strconv.Itoa(f.issued),
			"expires_in":   3600,
			"token_type":   "bearer",
		})

	case "/helix/streams":
		f.streamCalls++
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if f.rejectAll || (f.validToken != "" && token != f.validToken) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized","status":401,"message":"Invalid OAuth token"}`))
			return
		}
		if f.streamStatus != 0 {
			w.WriteHeader(f.streamStatus)
			_, _ = w.Write([]byte(`{"error":"Internal Server Error","status":500,"message":"upstream"}`))
			return
		}
		live := f.live
		if live == nil {
			live = []map[string]interface{}{}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data":       live,
			"pagination": map[string]string{},
		})

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeTwitch) setLive(streams ...map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = streams
}

func (f *fakeTwitch) calls() (token, stream int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenCalls, f.streamCalls
}

func liveStream(title, game string) map[string]interface{} {
	return map[string]interface{}{
		"id":         "1",
		"user_login": testChannel,
		"user_name":  "Akimary",
		"game_name":  game,
		"title":      title,
		"type":       "live",
	}
}

func newTestTracker(t *testing.T, twitch *fakeTwitch, n notifier) *Tracker {
	t.Helper()

	srv := httptest.NewServer(twitch)
	t.Cleanup(srv.Close)

	tokens := newTokenManager("client-id", "client-secret", srv.Client())
	tokens.tokenURL = srv.URL + "/oauth2/token"

	streams, err := newHelixStreamSource("client-id", srv.URL+"/helix", testChannel, srv.Client())
	require.NoError(t, err)

	return NewTracker(testChannel, time.Minute, tokens, streams, n, newStatusFeed())
}

type streamFunc func(token string) (streamSnapshot, error)

func (f streamFunc) liveStreams(token string) (streamSnapshot, error) { return f(token) }

// signedInitData builds Mini-App init data signed the way Telegram does.
func signedInitData(botToken string, fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	values := url.Values{}
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
		values.Set(k, fields[k])
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))

	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return values.Encode()
}

func initDataFor(botToken string, userID int64, username string) string {
	user, _ := json.Marshal(map[string]interface{}{
		"id":         userID,
		"first_name": "Test",
		"username":   username,
	})

	return signedInitData(botToken, map[string]string{
		"auth_date": "1700000000",
		"query_id":  "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":      string(user),
	})
}
