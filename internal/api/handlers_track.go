// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package api

import (
	"errors"
	"net/http"

	"github.com/builderbee/pixeltrack/internal/ingest"
	"github.com/builderbee/pixeltrack/internal/logging"
)

// Track receives a beacon from the client snippet and records one visit.
func (h *Handlers) Track(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if !decodeJSONQuiet(r, &req) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	referrer := req.Referrer
	if referrer == "" {
		referrer = r.Referer()
	}

	err := h.ingest.RecordVisit(r.Context(), req.APIKey, ingest.VisitInput{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Page:      req.Page,
		Referrer:  referrer,
	})
	if err != nil {
		if errors.Is(err, ingest.ErrWrongAPIKey) {
			respondError(w, http.StatusBadRequest, "Wrong apiKey")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to log visit")
		respondError(w, http.StatusInternalServerError, "Error logging visit")
		return
	}
	respondMessage(w, http.StatusCreated, "Visit logged successfully!")
}
