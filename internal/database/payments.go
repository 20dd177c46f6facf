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

// InsertPayment appends one payment record to a project's payment log.
func (db *DB) InsertPayment(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.OccurredAt.IsZero() {
		p.OccurredAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO payments (id, project_id, amount_cents, currency, reference, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProjectID, p.AmountCent, p.Currency, p.Reference, p.OccurredAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// ListPayments returns a project's payment log, newest first.
func (db *DB) ListPayments(ctx context.Context, projectID string) ([]models.Payment, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, project_id, amount_cents, currency, reference, occurred_at
		FROM payments WHERE project_id = ?
		ORDER BY occurred_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer closeQuietly(rows)

	payments := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.AmountCent, &p.Currency,
			&p.Reference, &p.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
