package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const webAppDataKey = "WebAppData"

type initDataUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

func (u initDataUser) displayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// verifyInitData checks the Mini-App init data signature and returns the
// signed fields without the hash. It fails closed on any parse problem.
func verifyInitData(initData, botToken string) (url.Values, bool) {
	if initData == "" || botToken == "" {
		return nil, false
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, false
	}

	hash := values.Get("hash")
	if hash == "" {
		return nil, false
	}
	values.Del("hash")

	expected := signInitData(values, botToken)
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return nil, false
	}

	return values, true
}

func signInitData(values url.Values, botToken string) string {
	secret := hmac.New(sha256.New, []byte(webAppDataKey))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(dataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	return strings.Join(pairs, "\n")
}

func parseInitUser(values url.Values) (initDataUser, error) {
	var user initDataUser

	raw := values.Get("user")
	if raw == "" {
		return user, errors.Wrap(ErrValidation, "init data contains no user")
	}

	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return user, errors.Wrapf(ErrValidation, "decoding init data user: %s", err)
	}

	if user.ID == 0 {
		return user, errors.Wrap(ErrValidation, "init data user has no ID")
	}

	return user, nil
}
