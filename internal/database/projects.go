// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/builderbee/pixeltrack/internal/models"
)

const projectColumns = `id, key, name, logo, goal, goal_reached_at, owner_id,
	sign_in_count, snippet_added, created_at`

// CreateProject inserts a new project. Assigns ID and CreatedAt when unset.
// Returns ErrDuplicateKey on a tracking-key collision so the caller can
// regenerate and retry.
func (db *DB) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Key, p.Name, p.Logo, p.Goal, p.GoalReachedAt, p.OwnerID,
		p.SignInCount, p.SnippetAdded, p.CreatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// GetProjectByKey resolves a tracking key to its project, or ErrNotFound.
func (db *DB) GetProjectByKey(ctx context.Context, key string) (*models.Project, error) {
	return scanProject(db.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE key = ?`, key))
}

// GetProjectByID returns the project with the given id, or ErrNotFound.
func (db *DB) GetProjectByID(ctx context.Context, id string) (*models.Project, error) {
	return scanProject(db.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
}

// GetProjectForOwner returns the project only when it belongs to ownerID.
// A foreign project reports ErrNotFound rather than leaking its existence.
func (db *DB) GetProjectForOwner(ctx context.Context, id, ownerID string) (*models.Project, error) {
	return scanProject(db.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND owner_id = ?`, id, ownerID))
}

func scanProject(row *sql.Row) (*models.Project, error) {
	var p models.Project
	var goalReached sql.NullTime
	err := row.Scan(&p.ID, &p.Key, &p.Name, &p.Logo, &p.Goal, &goalReached,
		&p.OwnerID, &p.SignInCount, &p.SnippetAdded, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	if goalReached.Valid {
		p.GoalReachedAt = &goalReached.Time
	}
	return &p, nil
}

// ListProjectsByOwner returns all of an owner's projects with their visit
// counts, newest first.
func (db *DB) ListProjectsByOwner(ctx context.Context, ownerID string) ([]models.Project, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT p.id, p.key, p.name, p.logo, p.goal, p.goal_reached_at, p.owner_id,
			p.sign_in_count, p.snippet_added, p.created_at,
			COUNT(v.id) AS visit_count
		FROM projects p
		LEFT JOIN visits v ON v.project_id = p.id
		WHERE p.owner_id = ?
		GROUP BY p.id, p.key, p.name, p.logo, p.goal, p.goal_reached_at, p.owner_id,
			p.sign_in_count, p.snippet_added, p.created_at
		ORDER BY p.created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer closeQuietly(rows)

	projects := []models.Project{}
	for rows.Next() {
		var p models.Project
		var goalReached sql.NullTime
		if err := rows.Scan(&p.ID, &p.Key, &p.Name, &p.Logo, &p.Goal, &goalReached,
			&p.OwnerID, &p.SignInCount, &p.SnippetAdded, &p.CreatedAt, &p.VisitCount); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if goalReached.Valid {
			p.GoalReachedAt = &goalReached.Time
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProjectSettings updates the owner-editable settings. Changing the
// goal resets the goal latch so the notification can fire again for the
// new threshold.
func (db *DB) UpdateProjectSettings(ctx context.Context, p *models.Project) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE projects
		SET name = ?, logo = ?, snippet_added = ?,
			goal = ?,
			goal_reached_at = CASE WHEN goal = ? THEN goal_reached_at ELSE NULL END
		WHERE id = ? AND owner_id = ?`,
		p.Name, p.Logo, p.SnippetAdded, p.Goal, p.Goal, p.ID, p.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireRowAffected(res)
}

// LatchGoalReached marks the goal as reached exactly once. Returns true for
// the single caller that flipped the latch; false when it was already set.
func (db *DB) LatchGoalReached(ctx context.Context, projectID string, now time.Time) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE projects SET goal_reached_at = ?
		WHERE id = ? AND goal_reached_at IS NULL`,
		now.UTC(), projectID)
	if err != nil {
		return false, fmt.Errorf("failed to latch goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// IncrementSignInCount bumps the dashboard sign-in counter for a project.
func (db *DB) IncrementSignInCount(ctx context.Context, projectID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE projects SET sign_in_count = sign_in_count + 1 WHERE id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("failed to increment sign-in count: %w", err)
	}
	return nil
}

// DeleteProject removes a project and its child rows in one transaction.
// Scoped to the owner; a foreign project reports ErrNotFound.
func (db *DB) DeleteProject(ctx context.Context, projectID, ownerID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM projects WHERE id = ? AND owner_id = ?`, projectID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}

	for _, q := range []string{
		`DELETE FROM visits WHERE project_id = ?`,
		`DELETE FROM issues WHERE project_id = ?`,
		`DELETE FROM payments WHERE project_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, projectID); err != nil {
			return fmt.Errorf("failed to delete project data: %w", err)
		}
	}
	return tx.Commit()
}
