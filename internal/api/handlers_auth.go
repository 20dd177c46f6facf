// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/builderbee/pixeltrack/internal/auth"
	"github.com/builderbee/pixeltrack/internal/database"
	"github.com/builderbee/pixeltrack/internal/logging"
	"github.com/builderbee/pixeltrack/internal/mailer"
	"github.com/builderbee/pixeltrack/internal/models"
	"github.com/builderbee/pixeltrack/internal/validation"
)

// Register creates a password account and issues a session token.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.db.GetUserByEmail(r.Context(), req.Email); err == nil {
		respondMessage(w, http.StatusBadRequest, "User already exists")
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to hash password")
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		FirstLogin:   true,
	}
	if err := h.db.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			respondMessage(w, http.StatusBadRequest, "User already exists")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to create user")
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	h.issueToken(w, r, user, http.StatusCreated)
}

// Login authenticates a password account and issues a session token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondMessage(w, http.StatusBadRequest, "User does not exist")
			return
		}
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if !user.HasPassword() || !auth.CheckPassword(user.PasswordHash, req.Password) {
		respondMessage(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	if user.FirstLogin {
		if err := h.db.MarkLoggedIn(r.Context(), user.ID); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to clear first-login flag")
		}
	}
	h.issueToken(w, r, user, http.StatusOK)
}

// GoogleSignIn exchanges a Google access token for a session, creating the
// account on first sign-in with a time-boxed trial.
func (h *Handlers) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req googleSignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		respondMessage(w, http.StatusBadRequest, "Google token is required")
		return
	}

	identity, err := h.google.Verify(r.Context(), req.Token)
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Google token verification failed")
		respondMessage(w, http.StatusBadRequest, "Invalid Google token")
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), identity.Email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		trialEnd := time.Now().Add(h.cfg.Security.GoogleTrialPeriod)
		user = &models.User{
			Username:        identity.Email,
			Email:           identity.Email,
			FullName:        identity.Name,
			ProfilePicture:  identity.Picture,
			IsEmailVerified: true,
			HasAccess:       true,
			FreeTrialEndsAt: &trialEnd,
			FirstLogin:      true,
			SocialConnected: []models.SocialConnection{
				{Name: "google", Image: identity.Picture},
			},
		}
		if err := h.db.CreateUser(r.Context(), user); err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to create google user")
			respondMessage(w, http.StatusInternalServerError, "Server error")
			return
		}
	case err != nil:
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	default:
		conn := models.SocialConnection{Name: "google", Image: identity.Picture}
		if err := h.db.UpsertSocialConnection(r.Context(), user.ID, conn); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to record social connection")
		}
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to sign session token")
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "User signed in successfully",
		"token":   token,
	})
}

// GetUser returns the authenticated account.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		respondMessage(w, http.StatusNotFound, "User not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// UpdateProfile updates username, email, full name, and optionally the
// profile picture from a multipart form.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.cfg.Security.MaxUploadBytes); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.currentUser(r)
	if err != nil {
		respondMessage(w, http.StatusNotFound, "User not found")
		return
	}

	username := r.FormValue("username")
	email := r.FormValue("email")
	fullName := r.FormValue("fullName")

	if username != "" && username != user.Username {
		existing, err := h.db.GetUserByUsername(r.Context(), username)
		if err == nil && existing.ID != user.ID {
			respondMessage(w, http.StatusBadRequest, "Username already exists")
			return
		}
	}
	if email != "" && email != user.Email {
		existing, err := h.db.GetUserByEmail(r.Context(), email)
		if err == nil && existing.ID != user.ID {
			respondMessage(w, http.StatusBadRequest, "Email already exists")
			return
		}
	}

	if file, _, err := r.FormFile("profilePicture"); err == nil {
		defer func() { _ = file.Close() }()
		if h.images == nil {
			respondMessage(w, http.StatusInternalServerError, "Image hosting is not configured")
			return
		}
		if user.ProfilePicture != "" {
			if err := h.images.DeleteProfilePicture(r.Context(), user.ProfilePicture); err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to delete previous profile picture")
			}
		}
		url, err := h.images.UploadProfilePicture(r.Context(), user.ID, file)
		if err != nil {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Profile picture upload failed")
			respondMessage(w, http.StatusInternalServerError, "Server error")
			return
		}
		user.ProfilePicture = url
	}

	if username != "" {
		user.Username = username
	}
	if email != "" {
		user.Email = email
	}
	if fullName != "" {
		user.FullName = fullName
	}

	if err := h.db.UpdateUserProfile(r.Context(), user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			respondMessage(w, http.StatusBadRequest, "Email already exists")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to update profile")
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// DeleteProfilePicture removes the hosted profile picture.
func (h *Handlers) DeleteProfilePicture(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		respondMessage(w, http.StatusNotFound, "User not found")
		return
	}

	if user.ProfilePicture != "" && h.images != nil {
		if err := h.images.DeleteProfilePicture(r.Context(), user.ProfilePicture); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to delete hosted profile picture")
		}
	}
	user.ProfilePicture = ""
	if err := h.db.UpdateUserProfile(r.Context(), user); err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondMessage(w, http.StatusOK, "Profile picture deleted successfully")
}

// MagicLink requests a passwordless sign-in link, creating the account on
// first use with a short trial. Always responds success once the request
// is accepted; delivery failures are logged by the dispatcher.
func (h *Handlers) MagicLink(w http.ResponseWriter, r *http.Request) {
	var req magicLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, database.ErrNotFound) {
		trialEnd := time.Now().Add(h.cfg.Security.MagicLinkTrialPeriod)
		user = &models.User{
			Username:        req.Email,
			Email:           req.Email,
			HasAccess:       true,
			FreeTrialEndsAt: &trialEnd,
			FirstLogin:      true,
		}
		if err := h.db.CreateUser(r.Context(), user); err != nil {
			respondMessage(w, http.StatusInternalServerError, "Server error")
			return
		}
	} else if err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	token, err := auth.NewOpaqueToken()
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	expiresAt := time.Now().Add(h.cfg.Security.MagicLinkTTL)
	if err := h.db.SetMagicToken(r.Context(), user.ID, token, expiresAt); err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	if h.mail != nil {
		h.mail.Enqueue(mailer.MagicLinkMessage(user.Email, h.cfg.Server.WebsiteURL, token))
	}
	respondMessage(w, http.StatusOK, "Magic link sent")
}

// VerifyMagicLink exchanges a live magic-link token for a session. The
// token is single-use: consumption clears it and marks the email verified.
func (h *Handlers) VerifyMagicLink(w http.ResponseWriter, r *http.Request) {
	var req verifyMagicLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.db.GetUserByMagicToken(r.Context(), req.Token, time.Now())
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}
	if err := h.db.ConsumeMagicToken(r.Context(), user.ID); err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	h.issueToken(w, r, user, http.StatusOK)
}

// ResetPassword requests a password-reset link. Responds success whether
// or not the email is registered so addresses cannot be enumerated.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, database.ErrNotFound) {
		respondMessage(w, http.StatusOK, "Password reset email sent")
		return
	}
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	token, err := auth.NewOpaqueToken()
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	expiresAt := time.Now().Add(h.cfg.Security.ResetTokenTTL)
	if err := h.db.SetResetToken(r.Context(), user.ID, token, expiresAt); err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	if h.mail != nil {
		h.mail.Enqueue(mailer.PasswordResetMessage(user.Email, h.cfg.Server.WebsiteURL, token))
	}
	respondMessage(w, http.StatusOK, "Password reset email sent")
}

// VerifyResetPassword sets a new password for the holder of a live reset
// token. The token is cleared in the same statement as the rehash.
func (h *Handlers) VerifyResetPassword(w http.ResponseWriter, r *http.Request) {
	var req verifyResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.db.GetUserByResetToken(r.Context(), req.Token, time.Now())
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	if err := h.db.ConsumeResetToken(r.Context(), user.ID, hash); err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondMessage(w, http.StatusOK, "Password reset successfully")
}

// DisconnectSocial unlinks an identity provider from the account.
func (h *Handlers) DisconnectSocial(w http.ResponseWriter, r *http.Request) {
	var req disconnectSocialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.currentUser(r)
	if err != nil {
		respondMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err := h.db.RemoveSocialConnection(r.Context(), user.ID, req.Social); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "Social connection not found")
			return
		}
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	user, err = h.db.GetUserByID(r.Context(), user.ID)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// DeleteAccount removes the account and everything it owns.
func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		respondMessage(w, http.StatusNotFound, "User not found")
		return
	}

	if user.ProfilePicture != "" && h.images != nil {
		if err := h.images.DeleteProfilePicture(r.Context(), user.ProfilePicture); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to delete hosted profile picture")
		}
	}
	if err := h.db.DeleteUser(r.Context(), user.ID); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to delete account")
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondMessage(w, http.StatusOK, "Account deleted successfully")
}

// issueToken signs a session token for the user and writes {"token": ...}.
func (h *Handlers) issueToken(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	token, err := h.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to sign session token")
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondToken(w, status, token)
}
