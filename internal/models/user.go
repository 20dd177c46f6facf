// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

// Package models defines the canonical entity types shared by the stores,
// services, and HTTP handlers. Optional fields are explicit pointers; the
// duck-typed document shapes of earlier revisions are collapsed into these
// structs and validated at the service boundary.
package models

import "time"

// User is an account that owns tracked projects.
//
// Email is the unique natural key. PasswordHash is empty for accounts
// created through Google sign-in or magic links. At most one live
// (non-expired) reset or magic-link token exists at a time; both are
// cleared on use.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FullName       string `json:"fullName"`
	PasswordHash   string `json:"-"`
	ProfilePicture string `json:"profilePicture"`

	IsEmailVerified bool `json:"isEmailVerified"`

	ResetToken     string     `json:"-"`
	ResetExpiresAt *time.Time `json:"-"`
	MagicToken     string     `json:"-"`
	MagicExpiresAt *time.Time `json:"-"`

	SocialConnected []SocialConnection `json:"socialConnected"`

	HasAccess       bool       `json:"hasAccess"`
	FreeTrialEndsAt *time.Time `json:"freeTrialEndsAt,omitempty"`
	FirstLogin      bool       `json:"firstLogin"`

	CreatedAt time.Time `json:"createdAt"`
}

// SocialConnection records a linked identity provider on a user account.
type SocialConnection struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
