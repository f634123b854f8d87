package main

import "github.com/pkg/errors"

var (
	// ErrConfig marks a missing secret or identifier.
	ErrConfig = errors.New("missing configuration")
	// ErrAuth marks a rejected signature or a failed token exchange.
	ErrAuth = errors.New("authentication failed")
	// ErrTransport marks network failures and unexpected upstream responses.
	ErrTransport = errors.New("upstream request failed")
	// ErrValidation marks malformed request input.
	ErrValidation = errors.New("invalid request")

	errUnauthorized = errors.New("twitch rejected access token")
)
