// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/builderbee/pixeltrack/internal/models"
)

// trackingKeyHexLen is the number of hex characters after the key prefix.
const trackingKeyHexLen = 28

// NewTrackingKey generates a tracking key of the form pt_<28 hex chars>.
func NewTrackingKey() (string, error) {
	buf := make([]byte, trackingKeyHexLen/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate tracking key: %w", err)
	}
	return models.TrackingKeyPrefix + hex.EncodeToString(buf), nil
}

// NewOpaqueToken generates a random token for magic links and password
// resets. 32 bytes of entropy, hex encoded.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
