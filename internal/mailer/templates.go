// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package mailer

import (
	"fmt"
	"html"
)

// GoalReachedMessage notifies a project owner that the visit goal was hit.
func GoalReachedMessage(to, projectName string, goal int) *Message {
	name := html.EscapeString(projectName)
	return &Message{
		To:      to,
		Subject: fmt.Sprintf("🎉 %s reached its goal!", projectName),
		BodyHTML: fmt.Sprintf(`<div style="font-family:sans-serif;max-width:480px">
<h2>Congratulations!</h2>
<p>Your project <strong>%s</strong> just reached its goal of <strong>%d visits</strong>.</p>
<p>Keep up the momentum. Check your dashboard for the details.</p>
</div>`, name, goal),
	}
}

// MagicLinkMessage carries a one-time sign-in link.
func MagicLinkMessage(to, websiteURL, token string) *Message {
	link := fmt.Sprintf("%s/verify-magic-link?token=%s", websiteURL, token)
	return &Message{
		To:      to,
		Subject: "Your sign-in link",
		BodyHTML: fmt.Sprintf(`<div style="font-family:sans-serif;max-width:480px">
<h2>Sign in to PixelTrack</h2>
<p>Click the link below to sign in. It expires in 15 minutes and can be used once.</p>
<p><a href="%s">Sign in</a></p>
<p>If you did not request this, you can safely ignore this email.</p>
</div>`, link),
	}
}

// PasswordResetMessage carries a one-time password-reset link.
func PasswordResetMessage(to, websiteURL, token string) *Message {
	link := fmt.Sprintf("%s/reset-password?token=%s", websiteURL, token)
	return &Message{
		To:      to,
		Subject: "Reset your password",
		BodyHTML: fmt.Sprintf(`<div style="font-family:sans-serif;max-width:480px">
<h2>Password reset</h2>
<p>Click the link below to choose a new password. It expires in 15 minutes.</p>
<p><a href="%s">Reset password</a></p>
<p>If you did not request this, you can safely ignore this email.</p>
</div>`, link),
	}
}

// IssueReportedMessage notifies a project owner about a new visitor issue.
func IssueReportedMessage(to, projectName, issueTitle, issueDescription string) *Message {
	return &Message{
		To:      to,
		Subject: fmt.Sprintf("New issue on %s", projectName),
		BodyHTML: fmt.Sprintf(`<div style="font-family:sans-serif;max-width:480px">
<h2>New issue reported</h2>
<p>A visitor reported an issue on <strong>%s</strong>:</p>
<p><strong>%s</strong></p>
<p>%s</p>
</div>`, html.EscapeString(projectName), html.EscapeString(issueTitle),
			html.EscapeString(issueDescription)),
	}
}

// IssueReplyMessage carries the owner's reply back to the reporting visitor.
func IssueReplyMessage(to, projectName, issueTitle, reply string) *Message {
	return &Message{
		To:      to,
		Subject: fmt.Sprintf("Reply to your issue on %s", projectName),
		BodyHTML: fmt.Sprintf(`<div style="font-family:sans-serif;max-width:480px">
<h2>You got a reply</h2>
<p>The team behind <strong>%s</strong> replied to your issue "<strong>%s</strong>":</p>
<p>%s</p>
</div>`, html.EscapeString(projectName), html.EscapeString(issueTitle),
			html.EscapeString(reply)),
	}
}
