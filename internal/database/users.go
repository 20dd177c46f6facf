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

const userColumns = `id, username, email, full_name, password_hash, profile_picture,
	is_email_verified, reset_token, reset_expires_at, magic_token, magic_expires_at,
	has_access, free_trial_ends_at, first_login, created_at`

// CreateUser inserts a new user. Assigns ID and CreatedAt when unset.
// Returns ErrDuplicateEmail when the email is already registered.
func (db *DB) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.ProfilePicture,
		u.IsEmailVerified, u.ResetToken, u.ResetExpiresAt, u.MagicToken, u.MagicExpiresAt,
		u.HasAccess, u.FreeTrialEndsAt, u.FirstLogin, u.CreatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	for _, conn := range u.SocialConnected {
		if err := db.UpsertSocialConnection(ctx, u.ID, conn); err != nil {
			return err
		}
	}
	return nil
}

// GetUserByID returns the user with the given id, including social
// connections, or ErrNotFound.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail returns the user with the given email, or ErrNotFound.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetUserByUsername returns the user with the given username, or
// ErrNotFound. Used for the uniqueness pre-check on profile updates.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// GetUserByMagicToken returns the user holding a non-expired magic-link
// token, or ErrNotFound when the token is unknown or expired.
func (db *DB) GetUserByMagicToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return db.getUser(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE magic_token = ? AND magic_expires_at IS NOT NULL AND magic_expires_at > ?`,
		token, now.UTC())
}

// GetUserByResetToken returns the user holding a non-expired password-reset
// token, or ErrNotFound when the token is unknown or expired.
func (db *DB) GetUserByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return db.getUser(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE reset_token = ? AND reset_expires_at IS NOT NULL AND reset_expires_at > ?`,
		token, now.UTC())
}

func (db *DB) getUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	conns, err := db.listSocialConnections(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	u.SocialConnected = conns
	return u, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var resetExp, magicExp, trialEnd sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash,
		&u.ProfilePicture, &u.IsEmailVerified, &u.ResetToken, &resetExp,
		&u.MagicToken, &magicExp, &u.HasAccess, &trialEnd, &u.FirstLogin, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if resetExp.Valid {
		u.ResetExpiresAt = &resetExp.Time
	}
	if magicExp.Valid {
		u.MagicExpiresAt = &magicExp.Time
	}
	if trialEnd.Valid {
		u.FreeTrialEndsAt = &trialEnd.Time
	}
	return &u, nil
}

// UpdateUserProfile updates the mutable profile fields of a user.
func (db *DB) UpdateUserProfile(ctx context.Context, u *models.User) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE users
		SET username = ?, email = ?, full_name = ?, profile_picture = ?
		WHERE id = ?`,
		u.Username, u.Email, u.FullName, u.ProfilePicture, u.ID)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return requireRowAffected(res)
}

// SetMagicToken stores a fresh magic-link token, replacing any prior one.
func (db *DB) SetMagicToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET magic_token = ?, magic_expires_at = ? WHERE id = ?`,
		token, expiresAt.UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to set magic token: %w", err)
	}
	return requireRowAffected(res)
}

// ConsumeMagicToken clears the magic-link token and marks the email verified.
func (db *DB) ConsumeMagicToken(ctx context.Context, userID string) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE users
		SET magic_token = '', magic_expires_at = NULL, is_email_verified = TRUE
		WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to consume magic token: %w", err)
	}
	return requireRowAffected(res)
}

// SetResetToken stores a fresh password-reset token, replacing any prior one.
func (db *DB) SetResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET reset_token = ?, reset_expires_at = ? WHERE id = ?`,
		token, expiresAt.UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return requireRowAffected(res)
}

// ConsumeResetToken sets the new password hash and clears the reset token
// in one statement so the token cannot be replayed.
func (db *DB) ConsumeResetToken(ctx context.Context, userID, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx, `
		UPDATE users
		SET password_hash = ?, reset_token = '', reset_expires_at = NULL
		WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	return requireRowAffected(res)
}

// MarkLoggedIn clears the first-login flag after the first successful
// authenticated session.
func (db *DB) MarkLoggedIn(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET first_login = FALSE WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear first-login flag: %w", err)
	}
	return nil
}

// UpsertSocialConnection records a linked identity provider, updating the
// stored image when the provider is already linked.
func (db *DB) UpsertSocialConnection(ctx context.Context, userID string, conn models.SocialConnection) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO social_connections (user_id, name, image)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, name) DO UPDATE SET image = EXCLUDED.image`,
		userID, conn.Name, conn.Image)
	if err != nil {
		return fmt.Errorf("failed to upsert social connection: %w", err)
	}
	return nil
}

// RemoveSocialConnection unlinks an identity provider from a user.
// Returns ErrNotFound when the provider was not linked.
func (db *DB) RemoveSocialConnection(ctx context.Context, userID, name string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM social_connections WHERE user_id = ? AND name = ?`, userID, name)
	if err != nil {
		return fmt.Errorf("failed to remove social connection: %w", err)
	}
	return requireRowAffected(res)
}

func (db *DB) listSocialConnections(ctx context.Context, userID string) ([]models.SocialConnection, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name, image FROM social_connections WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social connections: %w", err)
	}
	defer closeQuietly(rows)

	conns := []models.SocialConnection{}
	for rows.Next() {
		var c models.SocialConnection
		if err := rows.Scan(&c.Name, &c.Image); err != nil {
			return nil, fmt.Errorf("failed to scan social connection: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// DeleteUser removes a user and everything the user owns: projects with
// their visit logs, issue threads and payments, plus linked providers.
// All deletes run in one transaction.
func (db *DB) DeleteUser(ctx context.Context, userID string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM visits WHERE project_id IN (SELECT id FROM projects WHERE owner_id = ?)`,
		`DELETE FROM issues WHERE project_id IN (SELECT id FROM projects WHERE owner_id = ?)`,
		`DELETE FROM payments WHERE project_id IN (SELECT id FROM projects WHERE owner_id = ?)`,
		`DELETE FROM projects WHERE owner_id = ?`,
		`DELETE FROM social_connections WHERE user_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, userID); err != nil {
			return fmt.Errorf("failed to delete user data: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := requireRowAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// requireRowAffected translates a zero-row update into ErrNotFound.
func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
