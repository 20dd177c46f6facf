// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package database

import (
	"errors"
	"io"
	"strings"
)

// Sentinel errors returned by the stores. The route layer maps these to the
// HTTP error taxonomy.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrDuplicateKey indicates a tracking-key collision.
	ErrDuplicateKey = errors.New("tracking key already exists")

	// ErrIssueAlreadyReplied indicates the issue was replied to before.
	ErrIssueAlreadyReplied = errors.New("issue already replied")
)

// isConstraintViolation reports whether err is a unique-constraint failure.
// The DuckDB driver surfaces these as plain error strings.
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint error")
}
// closeQuietly closes a resource and explicitly ignores any error.
// Use in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
