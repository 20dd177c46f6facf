// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

/*
database_schema.go - Schema Management

Tables:
  - users: account records with credentials, verification state, and live
    magic-link / reset tokens
  - social_connections: linked identity providers per user
  - projects: one row per tracked project, owning the tracking key and goal
  - visits: append-only visit log, child of projects
  - issues: visitor issue thread, child of projects
  - payments: optional payment log, child of projects

All columns are defined in the initial CREATE TABLE statements; there are
no migrations yet. Child rows are deleted explicitly inside transactions
because DuckDB foreign keys do not cascade.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core tables and indexes.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// tableCreationQueries returns the table and index creation statements.
func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL DEFAULT '',
			profile_picture TEXT NOT NULL DEFAULT '',
			is_email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			reset_token TEXT NOT NULL DEFAULT '',
			reset_expires_at TIMESTAMP,
			magic_token TEXT NOT NULL DEFAULT '',
			magic_expires_at TIMESTAMP,
			has_access BOOLEAN NOT NULL DEFAULT FALSE,
			free_trial_ends_at TIMESTAMP,
			first_login BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS social_connections (
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (user_id, name)
		)`,

		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			logo TEXT NOT NULL DEFAULT '',
			goal INTEGER NOT NULL DEFAULT 0,
			goal_reached_at TIMESTAMP,
			owner_id TEXT NOT NULL,
			sign_in_count INTEGER NOT NULL DEFAULT 0,
			snippet_added BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS visits (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			ip TEXT NOT NULL DEFAULT '',
			device TEXT NOT NULL DEFAULT 'Unknown',
			browser TEXT NOT NULL DEFAULT 'Unknown',
			platform TEXT NOT NULL DEFAULT 'Unknown',
			page TEXT NOT NULL DEFAULT 'Unknown',
			referrer TEXT NOT NULL DEFAULT 'Unknown',
			country TEXT NOT NULL DEFAULT 'Unknown',
			occurred_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS issues (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			visitor_email TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'Not replied',
			created_at TIMESTAMP NOT NULL,
			replied_at TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS payments (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL,
			amount_cents BIGINT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USD',
			reference TEXT NOT NULL DEFAULT '',
			occurred_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
		`CREATE INDEX IF NOT EXISTS idx_users_magic_token ON users(magic_token)`,
		`CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users(reset_token)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_key ON projects(key)`,
		`CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_project ON visits(project_id)`,
		`CREATE INDEX IF NOT EXISTS idx_visits_occurred ON visits(project_id, occurred_at)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_project ON issues(project_id)`,
	}
}
