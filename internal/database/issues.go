// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/builderbee/pixeltrack/internal/models"
)

// InsertIssue appends a visitor issue to a project's thread with the
// initial "Not replied" status.
func (db *DB) InsertIssue(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = time.Now().UTC()
	}
	if issue.Status == "" {
		issue.Status = models.IssueStateNotReplied
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO issues (id, project_id, visitor_email, title, description,
			status, created_at, replied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.ProjectID, issue.VisitorEmail, issue.Title,
		issue.Description, issue.Status, issue.CreatedAt, issue.RepliedAt)
	if err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}
	return nil
}

// GetIssue returns one issue from a project's thread, or ErrNotFound.
func (db *DB) GetIssue(ctx context.Context, projectID, issueID string) (*models.Issue, error) {
	var issue models.Issue
	var repliedAt sql.NullTime
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, project_id, visitor_email, title, description, status,
			created_at, replied_at
		FROM issues WHERE id = ? AND project_id = ?`, issueID, projectID).
		Scan(&issue.ID, &issue.ProjectID, &issue.VisitorEmail, &issue.Title,
			&issue.Description, &issue.Status, &issue.CreatedAt, &repliedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan issue: %w", err)
	}
	if repliedAt.Valid {
		issue.RepliedAt = &repliedAt.Time
	}
	return &issue, nil
}

// ListIssues returns a project's issue thread, newest first.
func (db *DB) ListIssues(ctx context.Context, projectID string) ([]models.Issue, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, project_id, visitor_email, title, description, status,
			created_at, replied_at
		FROM issues WHERE project_id = ?
		ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer closeQuietly(rows)

	issues := []models.Issue{}
	for rows.Next() {
		var issue models.Issue
		var repliedAt sql.NullTime
		if err := rows.Scan(&issue.ID, &issue.ProjectID, &issue.VisitorEmail,
			&issue.Title, &issue.Description, &issue.Status, &issue.CreatedAt,
			&repliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		if repliedAt.Valid {
			issue.RepliedAt = &repliedAt.Time
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// MarkIssueReplied transitions an issue to "Replied". The guard on the
// current status makes the transition one-way: a second reply attempt
// returns ErrIssueAlreadyReplied, an unknown issue ErrNotFound.
func (db *DB) MarkIssueReplied(ctx context.Context, projectID, issueID string, now time.Time) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE issues SET status = ?, replied_at = ?
		WHERE id = ? AND project_id = ? AND status = ?`,
		models.IssueStateReplied, now.UTC(), issueID, projectID,
		models.IssueStateNotReplied)
	if err != nil {
		return fmt.Errorf("failed to mark issue replied: %w", err)
	}
	if err := requireRowAffected(res); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	// Zero rows: distinguish missing issue from already-replied issue.
	if _, err := db.GetIssue(ctx, projectID, issueID); err != nil {
		return err
	}
	return ErrIssueAlreadyReplied
}
