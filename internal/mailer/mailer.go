// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

// Package mailer sends transactional email over SMTP and dispatches it
// asynchronously so request handlers never block on delivery.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/builderbee/pixeltrack/internal/config"
)

// Message is one transactional email.
type Message struct {
	To       string
	Subject  string
	BodyHTML string
}

// Mailer delivers a single message. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// SMTPMailer delivers mail through a single SMTP server with StartTLS.
type SMTPMailer struct {
	cfg         *config.MailConfig
	dialTimeout time.Duration
}

// NewSMTPMailer creates an SMTP mailer from the mail configuration.
func NewSMTPMailer(cfg *config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:         cfg,
		dialTimeout: 30 * time.Second,
	}
}

// Send delivers one message. Transient failures are retryable by the
// dispatcher; Send itself makes a single attempt.
func (m *SMTPMailer) Send(ctx context.Context, msg *Message) error {
	return m.sendSMTP(ctx, msg.To, m.buildMessage(msg))
}

// headerValue strips CR/LF from a header value. Subjects and addresses can
// carry user-chosen text (project names), which must not terminate the
// header they appear in.
func headerValue(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// buildMessage constructs the RFC 5322 message with headers.
func (m *SMTPMailer) buildMessage(msg *Message) string {
	var b strings.Builder

	fromName := m.cfg.FromName
	if fromName == "" {
		fromName = "PixelTrack"
	}

	b.WriteString(fmt.Sprintf("From: %s <%s>\r\n", headerValue(fromName), headerValue(m.cfg.From)))
	b.WriteString(fmt.Sprintf("To: %s\r\n", headerValue(msg.To)))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", headerValue(msg.Subject)))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.BodyHTML)
	return b.String()
}

// sendSMTP performs the SMTP conversation: dial, StartTLS, auth, send.
func (m *SMTPMailer) sendSMTP(ctx context.Context, to, msg string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	dialer := &net.Dialer{Timeout: m.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }()

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }()

	if m.cfg.UseTLS {
		tlsConfig := &tls.Config{
			ServerName: m.cfg.Host,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if m.cfg.User != "" && m.cfg.Password != "" {
		auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}
	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	// Message is already accepted at this point; a failed QUIT is harmless.
	_ = client.Quit()
	return nil
}

// isTransientError reports whether a delivery failure is worth retrying.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connect") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "deadline") ||
		strings.Contains(msg, "rate") ||
		strings.Contains(msg, "temporarily")
}
