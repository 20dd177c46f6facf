// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testSecret = "test-secret-key-that-is-long-enough!"

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()
	manager := NewJWTManager(testSecret, time.Hour)

	token, err := manager.GenerateToken("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-1")
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "user@example.com")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	t.Parallel()
	manager := NewJWTManager(testSecret, -time.Minute)

	token, err := manager.GenerateToken("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if _, err := manager.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("ValidateToken() error = %v, want ErrExpiredToken", err)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Parallel()
	token, err := NewJWTManager(testSecret, time.Hour).GenerateToken("user-1", "u@example.com")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	other := NewJWTManager("another-secret-key-also-long-enough", time.Hour)
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("CheckPassword() = false for correct password")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("CheckPassword() = true for wrong password")
	}
}

func TestNewTrackingKeyFormat(t *testing.T) {
	t.Parallel()
	key, err := NewTrackingKey()
	if err != nil {
		t.Fatalf("NewTrackingKey() error = %v", err)
	}
	if !strings.HasPrefix(key, "pt_") {
		t.Errorf("NewTrackingKey() = %q, want pt_ prefix", key)
	}
	if len(key) != len("pt_")+trackingKeyHexLen {
		t.Errorf("NewTrackingKey() length = %d, want %d", len(key), len("pt_")+trackingKeyHexLen)
	}
	second, err := NewTrackingKey()
	if err != nil {
		t.Fatalf("NewTrackingKey() error = %v", err)
	}
	if key == second {
		t.Error("NewTrackingKey() generated the same key twice")
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()
	manager := NewJWTManager(testSecret, time.Hour)
	var gotClaims *Claims
	handler := Middleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}

	token, err := manager.GenerateToken("user-9", "nine@example.com")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/user", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotClaims == nil || gotClaims.UserID != "user-9" {
		t.Errorf("claims in context = %+v, want UserID user-9", gotClaims)
	}
}

func TestGoogleTokenVerifier(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("access_token") {
		case "good-token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"email":"g@example.com","name":"G User","picture":"https://img.example/g.png"}`))
		case "empty-email":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"No Email"}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	verifier := NewGoogleTokenVerifier(srv.URL, time.Second)

	identity, err := verifier.Verify(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if identity.Email != "g@example.com" {
		t.Errorf("Email = %q, want %q", identity.Email, "g@example.com")
	}

	if _, err := verifier.Verify(context.Background(), "bad-token"); !errors.Is(err, ErrInvalidGoogleToken) {
		t.Errorf("Verify() bad token error = %v, want ErrInvalidGoogleToken", err)
	}
	if _, err := verifier.Verify(context.Background(), "empty-email"); !errors.Is(err, ErrInvalidGoogleToken) {
		t.Errorf("Verify() empty email error = %v, want ErrInvalidGoogleToken", err)
	}
}
