// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package geoip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIsPrivateIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.1.10", true},
		{"10.0.0.1", true},
		{"172.16.5.4", true},
		{"127.0.0.1", true},
		{"::1", true},
		{"169.254.1.1", true},
		{"0.0.0.0", true},
		{"not-an-ip", true},
		{"", true},
		{"8.8.8.8", false},
		{"93.184.216.34", false},
		{"2001:4860:4860::8888", false},
	}
	for _, tt := range tests {
		if got := IsPrivateIP(tt.ip); got != tt.want {
			t.Errorf("IsPrivateIP(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}

func TestIPAPIProviderCountry(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/8.8.8.8/json/":
			_, _ = w.Write([]byte(`{"country_name":"United States"}`))
		case "/1.2.3.4/json/":
			_, _ = w.Write([]byte(`{"error":true,"reason":"Reserved IP Address"}`))
		case "/5.6.7.8/json/":
			_, _ = w.Write([]byte(`{"country_name":""}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	provider := NewIPAPIProvider(srv.URL, time.Second)

	country, err := provider.Country(context.Background(), "8.8.8.8")
	if err != nil {
		t.Fatalf("Country() error = %v", err)
	}
	if country != "United States" {
		t.Errorf("Country() = %q, want %q", country, "United States")
	}

	if _, err := provider.Country(context.Background(), "1.2.3.4"); err == nil {
		t.Error("Country() error = nil for API-reported error")
	}

	country, err = provider.Country(context.Background(), "5.6.7.8")
	if err != nil {
		t.Fatalf("Country() error = %v", err)
	}
	if country != UnknownCountry {
		t.Errorf("Country() empty name = %q, want %q", country, UnknownCountry)
	}

	if _, err := provider.Country(context.Background(), "9.9.9.9"); err == nil {
		t.Error("Country() error = nil for non-200 response")
	}
}

type stubProvider struct {
	country string
	err     error
	calls   int
}

func (s *stubProvider) Country(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.country, s.err
}

func TestResolverDegradesToUnknown(t *testing.T) {
	t.Parallel()

	failing := &stubProvider{err: errors.New("boom")}
	r := NewResolver(failing)
	if got := r.Resolve(context.Background(), "8.8.8.8"); got != UnknownCountry {
		t.Errorf("Resolve() on failure = %q, want %q", got, UnknownCountry)
	}

	ok := &stubProvider{country: "Germany"}
	r = NewResolver(ok)
	if got := r.Resolve(context.Background(), "8.8.8.8"); got != "Germany" {
		t.Errorf("Resolve() = %q, want %q", got, "Germany")
	}
}

func TestResolverSkipsPrivateIPs(t *testing.T) {
	t.Parallel()
	stub := &stubProvider{country: "Germany"}
	r := NewResolver(stub)

	if got := r.Resolve(context.Background(), "192.168.0.5"); got != UnknownCountry {
		t.Errorf("Resolve() private = %q, want %q", got, UnknownCountry)
	}
	if stub.calls != 0 {
		t.Errorf("provider called %d times for private IP, want 0", stub.calls)
	}
}

func TestBreakerProviderOpensAfterFailures(t *testing.T) {
	t.Parallel()
	failing := &stubProvider{err: errors.New("upstream down")}
	b := NewBreakerProvider(failing)

	for i := 0; i < 12; i++ {
		_, _ = b.Country(context.Background(), "8.8.8.8")
	}

	callsBefore := failing.calls
	if _, err := b.Country(context.Background(), "8.8.8.8"); err == nil {
		t.Error("Country() error = nil after repeated failures")
	}
	if failing.calls != callsBefore {
		t.Errorf("open breaker still reached provider (%d -> %d calls)", callsBefore, failing.calls)
	}
}
