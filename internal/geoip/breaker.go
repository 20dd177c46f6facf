// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package geoip

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/builderbee/pixeltrack/internal/logging"
)

// BreakerProvider wraps a Provider with a circuit breaker so a failing
// lookup API stops being hammered and visits keep flowing.
type BreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker[string]
}

// NewBreakerProvider wraps inner with a circuit breaker. The breaker opens
// when at least 10 requests in the rolling window fail at a 60%+ rate, and
// probes again after 60 seconds.
func NewBreakerProvider(inner Provider) *BreakerProvider {
	settings := gobreaker.Settings{
		Name:        "geoip",
		MaxRequests: 3,
		Interval:    2 * time.Minute,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("GeoIP circuit breaker state change")
		},
	}
	return &BreakerProvider{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Country resolves through the breaker. An open breaker fails fast.
func (b *BreakerProvider) Country(ctx context.Context, ip string) (string, error) {
	country, err := b.breaker.Execute(func() (string, error) {
		return b.inner.Country(ctx, ip)
	})
	if err != nil {
		return "", fmt.Errorf("geoip lookup: %w", err)
	}
	return country, nil
}
