// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

// Package ingest implements the visit-recording pipeline: tracking-key
// resolution, user-agent and geolocation enrichment, the append to the
// visit log, and the one-shot goal notification.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mileusna/useragent"

	"github.com/builderbee/pixeltrack/internal/database"
	"github.com/builderbee/pixeltrack/internal/geoip"
	"github.com/builderbee/pixeltrack/internal/logging"
	"github.com/builderbee/pixeltrack/internal/mailer"
	"github.com/builderbee/pixeltrack/internal/metrics"
	"github.com/builderbee/pixeltrack/internal/models"
)

// ErrWrongAPIKey indicates the tracking key does not resolve to a project.
var ErrWrongAPIKey = errors.New("wrong api key")

// unknownValue fills any visit dimension that cannot be determined.
const unknownValue = "Unknown"

// Notifier enqueues outbound mail without blocking. *mailer.Dispatcher
// satisfies it.
type Notifier interface {
	Enqueue(msg *mailer.Message) bool
}

// VisitInput is the raw material of one visit event as extracted from the
// tracking request.
type VisitInput struct {
	IP        string
	UserAgent string
	Page      string
	Referrer  string
}

// Service records visits for projects.
type Service struct {
	db       *database.DB
	geo      *geoip.Resolver
	notifier Notifier
}

// NewService creates the ingest service.
func NewService(db *database.DB, geo *geoip.Resolver, notifier Notifier) *Service {
	return &Service{db: db, geo: geo, notifier: notifier}
}

// RecordVisit resolves the tracking key, enriches the event, appends it to
// the project's visit log, and dispatches the goal notification when the
// visit count first reaches the goal. Enrichment failures degrade to
// "Unknown" values; only an unknown key or a storage failure is an error.
func (s *Service) RecordVisit(ctx context.Context, trackingKey string, input VisitInput) error {
	project, err := s.db.GetProjectByKey(ctx, trackingKey)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.VisitsRejected.Inc()
			return ErrWrongAPIKey
		}
		return fmt.Errorf("failed to resolve tracking key: %w", err)
	}

	visit := buildVisit(project.ID, input)
	visit.Country = s.geo.Resolve(ctx, input.IP)
	if visit.Country == geoip.UnknownCountry && input.IP != "" {
		metrics.GeoLookupFailures.Inc()
	}

	count, err := s.db.AppendVisit(ctx, visit)
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	metrics.VisitsRecorded.Inc()

	s.maybeNotifyGoal(ctx, project, count)
	return nil
}

// buildVisit fills the visit dimensions from the raw input, defaulting
// every missing dimension to "Unknown".
func buildVisit(projectID string, input VisitInput) *models.Visit {
	visit := &models.Visit{
		ProjectID: projectID,
		IP:        input.IP,
		Device:    unknownValue,
		Browser:   unknownValue,
		Platform:  unknownValue,
		Page:      orUnknown(input.Page),
		Referrer:  orUnknown(input.Referrer),
		Country:   unknownValue,
		Timestamp: time.Now().UTC(),
	}

	if input.UserAgent == "" {
		return visit
	}
	ua := useragent.Parse(input.UserAgent)
	if ua.Name != "" {
		visit.Browser = ua.Name
	}
	if ua.OS != "" {
		visit.Platform = ua.OS
	}
	switch {
	case ua.Mobile:
		visit.Device = "Mobile"
	case ua.Tablet:
		visit.Device = "Tablet"
	case ua.Desktop:
		visit.Device = "Desktop"
	case ua.Bot:
		visit.Device = "Bot"
	}
	return visit
}

func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}

// maybeNotifyGoal latches the goal and dispatches the owner email exactly
// once per configured goal. Notification failures never fail the visit.
func (s *Service) maybeNotifyGoal(ctx context.Context, project *models.Project, visitCount int) {
	if project.Goal <= 0 || visitCount < project.Goal {
		return
	}

	latched, err := s.db.LatchGoalReached(ctx, project.ID, time.Now())
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("project_id", project.ID).
			Msg("Failed to latch goal notification")
		return
	}
	if !latched {
		return
	}

	owner, err := s.db.GetUserByID(ctx, project.OwnerID)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("project_id", project.ID).
			Msg("Failed to load project owner for goal notification")
		return
	}

	if s.notifier != nil {
		s.notifier.Enqueue(mailer.GoalReachedMessage(owner.Email, project.Name, project.Goal))
		metrics.GoalNotifications.Inc()
	}
	logging.Ctx(ctx).Info().
		Str("project_id", project.ID).
		Str("project", project.Name).
		Int("goal", project.Goal).
		Msg("Goal reached, notification dispatched")
}
