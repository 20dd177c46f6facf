// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/builderbee/pixeltrack/internal/models"
)

// AppendVisit appends one visit to a project's log and returns the total
// visit count for that project after the insert. Insert and count run in
// one transaction so the returned count includes the new row exactly once.
func (db *DB) AppendVisit(ctx context.Context, v *models.Visit) (int, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now().UTC()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO visits (id, project_id, ip, device, browser, platform,
			page, referrer, country, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ProjectID, v.IP, v.Device, v.Browser, v.Platform,
		v.Page, v.Referrer, v.Country, v.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("failed to insert visit: %w", err)
	}

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM visits WHERE project_id = ?`, v.ProjectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit visit: %w", err)
	}
	return count, nil
}

// CountVisits returns the total visit count for a project.
func (db *DB) CountVisits(ctx context.Context, projectID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM visits WHERE project_id = ?`, projectID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return count, nil
}

// ListVisits returns a project's visit log, newest first.
func (db *DB) ListVisits(ctx context.Context, projectID string) ([]models.Visit, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, project_id, ip, device, browser, platform, page, referrer,
			country, occurred_at
		FROM visits WHERE project_id = ?
		ORDER BY occurred_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	defer closeQuietly(rows)

	visits := []models.Visit{}
	for rows.Next() {
		var v models.Visit
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.IP, &v.Device, &v.Browser,
			&v.Platform, &v.Page, &v.Referrer, &v.Country, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}
