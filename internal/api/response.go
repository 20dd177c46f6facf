// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/builderbee/pixeltrack/internal/logging"
)

// respondJSON writes v as the JSON response body with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondMessage writes {"message": msg}. The dashboard client reads this
// key for both success confirmations and auth-flow failures.
func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"message": msg})
}

// respondError writes {"error": msg}. Used by the beacon and issue routes.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondToken writes {"token": token}.
func respondToken(w http.ResponseWriter, status int, token string) {
	respondJSON(w, status, map[string]string{"token": token})
}

// decodeJSON decodes the request body into v. Returns false after writing
// a 400 response when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// decodeJSONQuiet decodes without writing a response, for routes that use
// their own error shape.
func decodeJSONQuiet(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}
