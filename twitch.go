package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nicklaw5/helix/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultHTTPTimeout = 10 * time.Second

	twitchTokenURL   = "https://id.twitch.tv/oauth2/token"
	twitchChannelURL = "https://www.twitch.tv/"
)

// tokenManager caches the app access token. The token is kept until
// Twitch rejects it, expiry is not tracked.
type tokenManager struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client

	mu    sync.Mutex
	token string
}

func newTokenManager(clientID, clientSecret string, httpClient *http.Client) *tokenManager {
	return &tokenManager{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     twitchTokenURL,
		httpClient:   httpClient,
	}
}

func (tm *tokenManager) configured() bool {
	return tm.clientID != "" && tm.clientSecret != ""
}

func (tm *tokenManager) cached() string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.token
}

func (tm *tokenManager) acquire(ctx context.Context) (string, error) {
	if !tm.configured() {
		log.Error("twitch client ID or secret not set")
		return "", errors.Wrap(ErrConfig, "twitch client ID or secret not set")
	}

	token, err := tm.exchange(ctx)

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if err != nil {
		tm.token = ""
		twitchTokenRequestsTotal.WithLabelValues("error").Inc()
		return "", err
	}

	tm.token = token
	twitchTokenRequestsTotal.WithLabelValues("ok").Inc()
	log.Info("obtained new twitch app access token")
	return token, nil
}

func (tm *tokenManager) exchange(ctx context.Context) (string, error) {
	data := url.Values{}
	data.Set("client_id", tm.clientID)
	data.Set("client_secret", tm.clientSecret)
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tm.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", errors.Wrapf(ErrAuth, "building token request: %s", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(ErrAuth, "requesting token: %s", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.WithError(err).Error("closing twitch token response body")
		}
	}()

	var tokenResp TwitchTokenResponse
	if err := decodeJSONResponse(resp, &tokenResp); err != nil {
		return "", errors.Wrapf(ErrAuth, "exchanging client credentials: %s", err)
	}

	if tokenResp.AccessToken == "" {
		return "", errors.Wrap(ErrAuth, "token response contained no access token")
	}

	return tokenResp.AccessToken, nil
}

func decodeJSONResponse(resp *http.Response, target interface{}) error {
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return errors.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return errors.Wrap(json.NewDecoder(resp.Body).Decode(target), "decoding response")
}

type streamSource interface {
	liveStreams(token string) (streamSnapshot, error)
}

// helixStreamSource looks up the live streams of a single login.
type helixStreamSource struct {
	client *helix.Client
	login  string
}

func newHelixStreamSource(clientID, apiBaseURL, login string, httpClient *http.Client) (*helixStreamSource, error) {
	client, err := helix.NewClient(&helix.Options{
		ClientID:   clientID,
		APIBaseURL: apiBaseURL,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating helix client")
	}

	return &helixStreamSource{client: client, login: login}, nil
}

func (s *helixStreamSource) liveStreams(token string) (streamSnapshot, error) {
	s.client.SetAppAccessToken(token)

	resp, err := s.client.GetStreams(&helix.StreamsParams{
		UserLogins: []string{s.login},
		First:      1,
	})
	if err != nil {
		return streamSnapshot{}, errors.Wrapf(ErrTransport, "fetching streams: %s", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return streamSnapshot{}, errUnauthorized
	case resp.StatusCode != http.StatusOK:
		return streamSnapshot{}, errors.Wrapf(ErrTransport, "unexpected status %d: %s", resp.StatusCode, resp.ErrorMessage)
	}

	if len(resp.Data.Streams) == 0 {
		return streamSnapshot{}, nil
	}

	stream := resp.Data.Streams[0]
	return streamSnapshot{
		Present:  true,
		Title:    stream.Title,
		GameName: stream.GameName,
		UserName: stream.UserName,
	}, nil
}
