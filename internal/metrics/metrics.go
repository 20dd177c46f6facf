// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

// Package metrics defines the Prometheus instrumentation for the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pixeltrack_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pixeltrack_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// VisitsRecorded counts accepted visit events.
	VisitsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixeltrack_visits_recorded_total",
			Help: "Total number of recorded visits",
		},
	)

	// VisitsRejected counts visit events rejected for a bad tracking key.
	VisitsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixeltrack_visits_rejected_total",
			Help: "Total number of visits rejected for an unknown tracking key",
		},
	)

	// GoalNotifications counts goal-reached notifications dispatched.
	GoalNotifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixeltrack_goal_notifications_total",
			Help: "Total number of goal-reached notifications dispatched",
		},
	)

	// GeoLookupFailures counts failed or degraded geolocation lookups.
	GeoLookupFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pixeltrack_geoip_failures_total",
			Help: "Total number of geolocation lookups that degraded to Unknown",
		},
	)
)
