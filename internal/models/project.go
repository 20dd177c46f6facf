// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package models

import "time"

// Issue states. The only legal transition is Not replied -> Replied, once.
const (
	IssueStateNotReplied = "Not replied"
	IssueStateReplied    = "Replied"
)

// TrackingKeyPrefix prefixes every generated tracking key embedded in the
// client snippet.
const TrackingKeyPrefix = "pt_"

// Project is one tracked website. The tracking key is globally unique and
// immutable after creation; the visit log is append-only.
type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"projectName"`
	Logo string `json:"logo,omitempty"`

	// Goal is the visit-count threshold that triggers the owner
	// notification. 0 means no goal is configured.
	Goal int `json:"goal,omitempty"`

	// GoalReachedAt latches the goal notification: set the moment the
	// visit count first reaches Goal, cleared when the goal is edited.
	GoalReachedAt *time.Time `json:"goalReachedAt,omitempty"`

	OwnerID string `json:"creator"`

	SignInCount  int  `json:"signInCount"`
	SnippetAdded bool `json:"snippetAdded"`

	CreatedAt time.Time `json:"createdAt"`

	// VisitCount is populated by list/detail queries, not stored.
	VisitCount int `json:"visitCount"`
}

// Visit is one page-visit event appended to a project's visit log.
type Visit struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"-"`
	IP        string    `json:"ip"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	Platform  string    `json:"platform"`
	Page      string    `json:"page"`
	Referrer  string    `json:"referrer"`
	Country   string    `json:"country"`
	Timestamp time.Time `json:"timestamp"`
}

// Issue is one visitor-submitted issue in a project's thread.
type Issue struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"-"`
	VisitorEmail string     `json:"userEmail"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	RepliedAt    *time.Time `json:"repliedAt,omitempty"`
}

// Payment is one entry in a project's payment log.
type Payment struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"-"`
	AmountCent int64     `json:"amountCents"`
	Currency   string    `json:"currency"`
	Reference  string    `json:"reference"`
	OccurredAt time.Time `json:"occurredAt"`
}
