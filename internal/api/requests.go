// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package api

// Request payloads. Validation tags are enforced through the validation
// package; wire field names match the dashboard and snippet clients.

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type googleSignInRequest struct {
	Token string `json:"token"`
}

type magicLinkRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyMagicLinkRequest struct {
	Token string `json:"token" validate:"required"`
}

type resetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type disconnectSocialRequest struct {
	Social string `json:"social" validate:"required"`
}

type createProjectRequest struct {
	ProjectName string `json:"projectName"`
}

type updateProjectRequest struct {
	ProjectName  string `json:"projectName" validate:"required"`
	Logo         string `json:"logo" validate:"omitempty,url"`
	Goal         int    `json:"goal" validate:"min=0"`
	SnippetAdded bool   `json:"snippetAdded"`
}

type trackRequest struct {
	APIKey   string `json:"apiKey"`
	Page     string `json:"page"`
	Referrer string `json:"referrer"`
}

type issueSendRequest struct {
	UserEmail   string `json:"userEmail" validate:"required,email"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	ProjectName string `json:"projectName" validate:"required"`
	ID          string `json:"id" validate:"required"`
}

type issueReplyRequest struct {
	UserEmail   string `json:"userEmail" validate:"required,email"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	ProjectName string `json:"projectName" validate:"required"`
	ID          string `json:"id" validate:"required"`
	IssueID     string `json:"issueId" validate:"required"`
}
