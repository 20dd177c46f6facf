// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/builderbee/pixeltrack/internal/database"
	"github.com/builderbee/pixeltrack/internal/logging"
	"github.com/builderbee/pixeltrack/internal/mailer"
	"github.com/builderbee/pixeltrack/internal/models"
	"github.com/builderbee/pixeltrack/internal/validation"
)

// SendIssue records a visitor-reported issue and emails the project owner.
// The widget sends both the project id and the project name; a mismatch is
// rejected so an id cannot be replayed against a different site.
func (h *Handlers) SendIssue(w http.ResponseWriter, r *http.Request) {
	var req issueSendRequest
	if !decodeJSONQuiet(r, &req) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.db.GetProjectByID(r.Context(), req.ID)
	if err != nil || project.Name != req.ProjectName {
		respondError(w, http.StatusBadRequest, "Wrong website url")
		return
	}

	owner, err := h.db.GetUserByID(r.Context(), project.OwnerID)
	if err != nil || owner.Email == "" {
		logging.Ctx(r.Context()).Error().Str("project_id", project.ID).
			Msg("Creator email not found")
		respondError(w, http.StatusInternalServerError, "Creator email not found")
		return
	}

	issue := &models.Issue{
		ProjectID:    project.ID,
		VisitorEmail: req.UserEmail,
		Title:        req.Title,
		Description:  req.Description,
	}
	if err := h.db.InsertIssue(r.Context(), issue); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to store issue")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	if h.mail != nil {
		h.mail.Enqueue(mailer.IssueReportedMessage(owner.Email, project.Name, req.Title, req.Description))
	}
	respondMessage(w, http.StatusOK, "Issue sent successfully")
}

// ReplyIssue transitions an issue to Replied and emails the reply to the
// reporting visitor. The transition is one-way; a second reply is refused.
func (h *Handlers) ReplyIssue(w http.ResponseWriter, r *http.Request) {
	var req issueReplyRequest
	if !decodeJSONQuiet(r, &req) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.db.GetProjectByID(r.Context(), req.ID)
	if err != nil || project.Name != req.ProjectName {
		respondError(w, http.StatusBadRequest, "Wrong website url")
		return
	}

	err = h.db.MarkIssueReplied(r.Context(), project.ID, req.IssueID, time.Now())
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "Issue not found")
		return
	case errors.Is(err, database.ErrIssueAlreadyReplied):
		respondError(w, http.StatusForbidden, "Issue already replied")
		return
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to mark issue replied")
		respondError(w, http.StatusInternalServerError, "Server error")
		return
	}

	if h.mail != nil {
		h.mail.Enqueue(mailer.IssueReplyMessage(req.UserEmail, project.Name, req.Title, req.Description))
	}
	respondMessage(w, http.StatusOK, "Reply sent successfully")
}
