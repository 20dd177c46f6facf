// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
)

// ErrInvalidGoogleToken indicates the access token failed verification.
var ErrInvalidGoogleToken = errors.New("invalid google token")

// GoogleIdentity is the verified identity returned by Google for an
// access token.
type GoogleIdentity struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GoogleVerifier verifies Google OAuth access tokens.
type GoogleVerifier interface {
	Verify(ctx context.Context, accessToken string) (*GoogleIdentity, error)
}

// GoogleTokenVerifier verifies access tokens against Google's userinfo
// endpoint over HTTPS with a bounded per-call timeout.
type GoogleTokenVerifier struct {
	baseURL string
	client  *http.Client
}

// NewGoogleTokenVerifier creates a verifier. baseURL overrides the Google
// endpoint for tests; pass "" for the default.
func NewGoogleTokenVerifier(baseURL string, timeout time.Duration) *GoogleTokenVerifier {
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GoogleTokenVerifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Verify resolves an access token to the Google identity it belongs to.
// Any non-200 response or unusable payload reports ErrInvalidGoogleToken.
func (v *GoogleTokenVerifier) Verify(ctx context.Context, accessToken string) (*GoogleIdentity, error) {
	endpoint := v.baseURL + "?access_token=" + url.QueryEscape(accessToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach verification endpoint: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrInvalidGoogleToken
	}

	var identity GoogleIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, ErrInvalidGoogleToken
	}
	if identity.Email == "" {
		return nil, ErrInvalidGoogleToken
	}
	return &identity, nil
}
