// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

// Package geoip resolves visitor IP addresses to country names using the
// ipapi.co HTTP API behind a rate limiter and a circuit breaker. Lookups
// are best-effort: any failure degrades to the "Unknown" country rather
// than failing the visit.
package geoip

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/builderbee/pixeltrack/internal/logging"
)

// UnknownCountry is recorded when the country cannot be determined.
const UnknownCountry = "Unknown"

// Provider resolves an IP address to a country name.
type Provider interface {
	Country(ctx context.Context, ip string) (string, error)
}

// IPAPIProvider queries ipapi.co for geolocation data.
type IPAPIProvider struct {
	baseURL string
	client  *http.Client
	limiter *rateLimiter
}

// ipapiResponse is the subset of the ipapi.co payload we use.
type ipapiResponse struct {
	CountryName string `json:"country_name"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// NewIPAPIProvider creates an ipapi.co provider. baseURL overrides the
// endpoint for tests; pass "" for the public API. The free tier allows
// roughly 1000 lookups per day, so callers get a conservative limiter.
func NewIPAPIProvider(baseURL string, timeout time.Duration) *IPAPIProvider {
	if baseURL == "" {
		baseURL = "https://ipapi.co"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IPAPIProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: newRateLimiter(30, time.Minute),
	}
}

// Country resolves ip to a country name via GET {base}/{ip}/json/.
func (p *IPAPIProvider) Country(ctx context.Context, ip string) (string, error) {
	if !p.limiter.allow() {
		return "", fmt.Errorf("geoip rate limit exceeded")
	}

	endpoint := fmt.Sprintf("%s/%s/json/", p.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build geoip request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("geoip request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geoip request returned status %d", resp.StatusCode)
	}

	var payload ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode geoip response: %w", err)
	}
	if payload.Error {
		return "", fmt.Errorf("geoip lookup rejected: %s", payload.Reason)
	}
	if payload.CountryName == "" {
		return UnknownCountry, nil
	}
	return payload.CountryName, nil
}

// rateLimiter is a simple token bucket refilled on a fixed interval.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	lastRefill time.Time
	interval   time.Duration
}

func newRateLimiter(maxTokens int, interval time.Duration) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		lastRefill: time.Now(),
		interval:   interval,
	}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if elapsed := time.Since(r.lastRefill); elapsed >= r.interval {
		r.tokens = r.maxTokens
		r.lastRefill = time.Now()
	}
	if r.tokens <= 0 {
		return false
	}
	r.tokens--
	return true
}

// IsPrivateIP reports whether the address is private, loopback, link-local,
// or unparseable. Such addresses are never sent to the lookup API.
func IsPrivateIP(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return true
	}
	return parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsLinkLocalUnicast() ||
		parsed.IsLinkLocalMulticast() || parsed.IsUnspecified()
}

// Resolver wraps a Provider with the private-IP short-circuit and the
// degrade-to-Unknown policy.
type Resolver struct {
	provider Provider
}

// NewResolver creates a Resolver on top of the given provider.
func NewResolver(provider Provider) *Resolver {
	return &Resolver{provider: provider}
}

// Resolve returns the country for ip, or UnknownCountry when no provider
// is configured, the address is private, or the lookup fails. It never returns an error; failures are
// logged and absorbed.
func (r *Resolver) Resolve(ctx context.Context, ip string) string {
	if r.provider == nil || ip == "" || IsPrivateIP(ip) {
		return UnknownCountry
	}

	country, err := r.provider.Country(ctx, ip)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("ip", ip).Msg("GeoIP lookup failed")
		return UnknownCountry
	}
	return country
}
