// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/builderbee/pixeltrack/internal/auth"
	"github.com/builderbee/pixeltrack/internal/database"
	"github.com/builderbee/pixeltrack/internal/logging"
	"github.com/builderbee/pixeltrack/internal/models"
	"github.com/builderbee/pixeltrack/internal/validation"
)

// createKeyAttempts bounds retries on a tracking-key collision.
const createKeyAttempts = 3

// CreateProject creates a tracked project with a fresh tracking key.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ProjectName == "" {
		respondMessage(w, http.StatusBadRequest, "Project name is required")
		return
	}

	claims := auth.ClaimsFromContext(r.Context())

	project := &models.Project{
		Name:    req.ProjectName,
		OwnerID: claims.UserID,
	}
	for attempt := 0; attempt < createKeyAttempts; attempt++ {
		key, err := auth.NewTrackingKey()
		if err != nil {
			respondMessage(w, http.StatusInternalServerError, "Server error")
			return
		}
		project.Key = key

		err = h.db.CreateProject(r.Context(), project)
		if err == nil {
			respondJSON(w, http.StatusCreated, project)
			return
		}
		if !errors.Is(err, database.ErrDuplicateKey) {
			logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to create project")
			respondMessage(w, http.StatusInternalServerError, "Server error")
			return
		}
	}
	respondMessage(w, http.StatusInternalServerError, "Server error")
}

// ListProjects returns the caller's projects with their visit counts.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	projects, err := h.db.ListProjectsByOwner(r.Context(), claims.UserID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to list projects")
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, projects)
}

// projectDetailResponse is a project with its embedded logs expanded.
type projectDetailResponse struct {
	models.Project
	Visits   []models.Visit   `json:"visits"`
	Issues   []models.Issue   `json:"issues"`
	Payments []models.Payment `json:"payments"`
}

// GetProject returns one of the caller's projects with its visit log,
// issue thread, and payment log.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	projectID := chi.URLParam(r, "id")

	project, err := h.db.GetProjectForOwner(r.Context(), projectID, claims.UserID)
	if err != nil {
		respondMessage(w, http.StatusNotFound, "Project not found")
		return
	}

	if err := h.db.IncrementSignInCount(r.Context(), project.ID); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to bump sign-in counter")
	}

	visits, err := h.db.ListVisits(r.Context(), project.ID)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	issues, err := h.db.ListIssues(r.Context(), project.ID)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	payments, err := h.db.ListPayments(r.Context(), project.ID)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	project.VisitCount = len(visits)
	respondJSON(w, http.StatusOK, projectDetailResponse{
		Project:  *project,
		Visits:   visits,
		Issues:   issues,
		Payments: payments,
	})
}

// UpdateProject updates the owner-editable project settings. Changing the
// goal re-arms the goal notification for the new threshold.
func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := auth.ClaimsFromContext(r.Context())
	projectID := chi.URLParam(r, "id")

	project, err := h.db.GetProjectForOwner(r.Context(), projectID, claims.UserID)
	if err != nil {
		respondMessage(w, http.StatusNotFound, "Project not found")
		return
	}

	project.Name = req.ProjectName
	project.Logo = req.Logo
	project.Goal = req.Goal
	project.SnippetAdded = req.SnippetAdded

	if err := h.db.UpdateProjectSettings(r.Context(), project); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to update project")
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}

	project, err = h.db.GetProjectForOwner(r.Context(), projectID, claims.UserID)
	if err != nil {
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondJSON(w, http.StatusOK, project)
}

// DeleteProject removes one of the caller's projects and its logs.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	projectID := chi.URLParam(r, "id")

	if err := h.db.DeleteProject(r.Context(), projectID, claims.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "Project not found")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to delete project")
		respondMessage(w, http.StatusInternalServerError, "Server error")
		return
	}
	respondMessage(w, http.StatusOK, "Project deleted successfully")
}
