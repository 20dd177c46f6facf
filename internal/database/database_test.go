// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/builderbee/pixeltrack/internal/config"
	"github.com/builderbee/pixeltrack/internal/models"
)

// newTestDB opens an in-memory database with the full schema.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{Path: ""})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func mustCreateUser(t *testing.T, db *DB, email string) *models.User {
	t.Helper()
	u := &models.User{
		Username:     "tester",
		Email:        email,
		FullName:     "Test User",
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
		FirstLogin:   true,
	}
	if err := db.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return u
}

func mustCreateProject(t *testing.T, db *DB, ownerID, name, key string, goal int) *models.Project {
	t.Helper()
	p := &models.Project{
		Key:     key,
		Name:    name,
		Goal:    goal,
		OwnerID: ownerID,
	}
	if err := db.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return p
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	mustCreateUser(t, db, "dup@example.com")

	err := db.CreateUser(context.Background(), &models.User{Email: "dup@example.com"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("CreateUser() error = %v, want ErrDuplicateEmail", err)
	}
}

func TestGetUserByEmail(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	created := mustCreateUser(t, db, "lookup@example.com")

	got, err := db.GetUserByEmail(context.Background(), "lookup@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetUserByEmail() id = %q, want %q", got.ID, created.ID)
	}
	if got.SocialConnected == nil {
		t.Error("GetUserByEmail() SocialConnected = nil, want empty slice")
	}

	if _, err := db.GetUserByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByEmail() unknown email error = %v, want ErrNotFound", err)
	}
}

func TestMagicTokenLifecycle(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "magic@example.com")

	expires := time.Now().Add(15 * time.Minute)
	if err := db.SetMagicToken(ctx, u.ID, "token-abc", expires); err != nil {
		t.Fatalf("SetMagicToken() error = %v", err)
	}

	got, err := db.GetUserByMagicToken(ctx, "token-abc", time.Now())
	if err != nil {
		t.Fatalf("GetUserByMagicToken() error = %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("GetUserByMagicToken() id = %q, want %q", got.ID, u.ID)
	}

	// Expired token is invisible.
	if _, err := db.GetUserByMagicToken(ctx, "token-abc", time.Now().Add(time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByMagicToken() after expiry error = %v, want ErrNotFound", err)
	}

	if err := db.ConsumeMagicToken(ctx, u.ID); err != nil {
		t.Fatalf("ConsumeMagicToken() error = %v", err)
	}
	if _, err := db.GetUserByMagicToken(ctx, "token-abc", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByMagicToken() after consume error = %v, want ErrNotFound", err)
	}

	got, err = db.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if !got.IsEmailVerified {
		t.Error("ConsumeMagicToken() did not mark email verified")
	}
}

func TestResetTokenConsumeClearsToken(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "reset@example.com")

	if err := db.SetResetToken(ctx, u.ID, "reset-xyz", time.Now().Add(15*time.Minute)); err != nil {
		t.Fatalf("SetResetToken() error = %v", err)
	}
	if _, err := db.GetUserByResetToken(ctx, "reset-xyz", time.Now()); err != nil {
		t.Fatalf("GetUserByResetToken() error = %v", err)
	}

	if err := db.ConsumeResetToken(ctx, u.ID, "newhash"); err != nil {
		t.Fatalf("ConsumeResetToken() error = %v", err)
	}
	if _, err := db.GetUserByResetToken(ctx, "reset-xyz", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByResetToken() after consume error = %v, want ErrNotFound", err)
	}

	got, err := db.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.PasswordHash != "newhash" {
		t.Errorf("password hash = %q, want %q", got.PasswordHash, "newhash")
	}
}

func TestSocialConnections(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "social@example.com")

	conn := models.SocialConnection{Name: "google", Image: "https://img.example/1.png"}
	if err := db.UpsertSocialConnection(ctx, u.ID, conn); err != nil {
		t.Fatalf("UpsertSocialConnection() error = %v", err)
	}
	// Second upsert updates the image instead of failing.
	conn.Image = "https://img.example/2.png"
	if err := db.UpsertSocialConnection(ctx, u.ID, conn); err != nil {
		t.Fatalf("UpsertSocialConnection() second call error = %v", err)
	}

	got, err := db.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if len(got.SocialConnected) != 1 {
		t.Fatalf("SocialConnected length = %d, want 1", len(got.SocialConnected))
	}
	if got.SocialConnected[0].Image != "https://img.example/2.png" {
		t.Errorf("SocialConnected image = %q, want updated image", got.SocialConnected[0].Image)
	}

	if err := db.RemoveSocialConnection(ctx, u.ID, "google"); err != nil {
		t.Fatalf("RemoveSocialConnection() error = %v", err)
	}
	if err := db.RemoveSocialConnection(ctx, u.ID, "google"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RemoveSocialConnection() second call error = %v, want ErrNotFound", err)
	}
}

func TestCreateProjectDuplicateKey(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	u := mustCreateUser(t, db, "projects@example.com")
	mustCreateProject(t, db, u.ID, "site-one", "pt_0123456789abcdef0123456789ab", 0)

	err := db.CreateProject(context.Background(), &models.Project{
		Key:     "pt_0123456789abcdef0123456789ab",
		Name:    "site-two",
		OwnerID: u.ID,
	})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("CreateProject() error = %v, want ErrDuplicateKey", err)
	}
}

func TestGetProjectForOwnerScoping(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	owner := mustCreateUser(t, db, "owner@example.com")
	other := mustCreateUser(t, db, "other@example.com")
	p := mustCreateProject(t, db, owner.ID, "scoped", "pt_aaaabbbbccccddddeeeeffff0000", 0)

	if _, err := db.GetProjectForOwner(context.Background(), p.ID, owner.ID); err != nil {
		t.Fatalf("GetProjectForOwner() owner error = %v", err)
	}
	if _, err := db.GetProjectForOwner(context.Background(), p.ID, other.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProjectForOwner() foreign owner error = %v, want ErrNotFound", err)
	}
}

func TestAppendVisitCounts(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "visits@example.com")
	p := mustCreateProject(t, db, u.ID, "visited", "pt_11112222333344445555666677", 0)

	for i := 1; i <= 3; i++ {
		count, err := db.AppendVisit(ctx, &models.Visit{
			ProjectID: p.ID,
			Device:    "Desktop",
			Browser:   "Firefox",
			Platform:  "Linux",
			Page:      "/pricing",
			Referrer:  "Unknown",
			Country:   "Germany",
		})
		if err != nil {
			t.Fatalf("AppendVisit() error = %v", err)
		}
		if count != i {
			t.Errorf("AppendVisit() count = %d, want %d", count, i)
		}
	}

	visits, err := db.ListVisits(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListVisits() error = %v", err)
	}
	if len(visits) != 3 {
		t.Errorf("ListVisits() length = %d, want 3", len(visits))
	}
}

func TestLatchGoalReachedOnce(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "goal@example.com")
	p := mustCreateProject(t, db, u.ID, "goaled", "pt_99998888777766665555444433", 2)

	latched, err := db.LatchGoalReached(ctx, p.ID, time.Now())
	if err != nil {
		t.Fatalf("LatchGoalReached() error = %v", err)
	}
	if !latched {
		t.Error("LatchGoalReached() first call = false, want true")
	}

	latched, err = db.LatchGoalReached(ctx, p.ID, time.Now())
	if err != nil {
		t.Fatalf("LatchGoalReached() second call error = %v", err)
	}
	if latched {
		t.Error("LatchGoalReached() second call = true, want false")
	}
}

func TestUpdateProjectSettingsResetsLatchOnGoalChange(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "relatch@example.com")
	p := mustCreateProject(t, db, u.ID, "relatch", "pt_abcdefabcdefabcdefabcdefab", 5)

	if _, err := db.LatchGoalReached(ctx, p.ID, time.Now()); err != nil {
		t.Fatalf("LatchGoalReached() error = %v", err)
	}

	// Editing unrelated settings keeps the latch.
	p.Logo = "https://img.example/logo.png"
	if err := db.UpdateProjectSettings(ctx, p); err != nil {
		t.Fatalf("UpdateProjectSettings() error = %v", err)
	}
	got, err := db.GetProjectByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProjectByID() error = %v", err)
	}
	if got.GoalReachedAt == nil {
		t.Error("latch cleared by unrelated settings change")
	}

	// Changing the goal clears the latch.
	p.Goal = 10
	if err := db.UpdateProjectSettings(ctx, p); err != nil {
		t.Fatalf("UpdateProjectSettings() error = %v", err)
	}
	got, err = db.GetProjectByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProjectByID() error = %v", err)
	}
	if got.GoalReachedAt != nil {
		t.Error("latch not cleared after goal change")
	}
	latched, err := db.LatchGoalReached(ctx, p.ID, time.Now())
	if err != nil {
		t.Fatalf("LatchGoalReached() after reset error = %v", err)
	}
	if !latched {
		t.Error("LatchGoalReached() after goal change = false, want true")
	}
}

func TestMarkIssueRepliedTransitions(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "issues@example.com")
	p := mustCreateProject(t, db, u.ID, "issued", "pt_00001111222233334444555566", 0)

	issue := &models.Issue{
		ProjectID:    p.ID,
		VisitorEmail: "visitor@example.com",
		Title:        "Broken checkout",
		Description:  "The pay button does nothing",
	}
	if err := db.InsertIssue(ctx, issue); err != nil {
		t.Fatalf("InsertIssue() error = %v", err)
	}
	if issue.Status != models.IssueStateNotReplied {
		t.Errorf("InsertIssue() status = %q, want %q", issue.Status, models.IssueStateNotReplied)
	}

	if err := db.MarkIssueReplied(ctx, p.ID, issue.ID, time.Now()); err != nil {
		t.Fatalf("MarkIssueReplied() error = %v", err)
	}
	err := db.MarkIssueReplied(ctx, p.ID, issue.ID, time.Now())
	if !errors.Is(err, ErrIssueAlreadyReplied) {
		t.Errorf("MarkIssueReplied() second call error = %v, want ErrIssueAlreadyReplied", err)
	}
	err = db.MarkIssueReplied(ctx, p.ID, "missing-issue", time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkIssueReplied() unknown issue error = %v, want ErrNotFound", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "cascade@example.com")
	p := mustCreateProject(t, db, u.ID, "doomed", "pt_deaddeaddeaddeaddeaddeadde", 0)

	if _, err := db.AppendVisit(ctx, &models.Visit{ProjectID: p.ID}); err != nil {
		t.Fatalf("AppendVisit() error = %v", err)
	}
	if err := db.InsertIssue(ctx, &models.Issue{ProjectID: p.ID, VisitorEmail: "v@example.com"}); err != nil {
		t.Fatalf("InsertIssue() error = %v", err)
	}

	if err := db.DeleteProject(ctx, p.ID, u.ID); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}

	count, err := db.CountVisits(ctx, p.ID)
	if err != nil {
		t.Fatalf("CountVisits() error = %v", err)
	}
	if count != 0 {
		t.Errorf("visits remaining after delete = %d, want 0", count)
	}
	issues, err := db.ListIssues(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListIssues() error = %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("issues remaining after delete = %d, want 0", len(issues))
	}
}

func TestDeleteUserRemovesOwnedData(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "gone@example.com")
	p := mustCreateProject(t, db, u.ID, "orphan", "pt_feedfeedfeedfeedfeedfeedfe", 0)
	if _, err := db.AppendVisit(ctx, &models.Visit{ProjectID: p.ID}); err != nil {
		t.Fatalf("AppendVisit() error = %v", err)
	}

	if err := db.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if _, err := db.GetUserByID(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByID() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetProjectByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProjectByID() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteUser() second call error = %v, want ErrNotFound", err)
	}
}

func TestListProjectsByOwnerIncludesVisitCount(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "list@example.com")
	p1 := mustCreateProject(t, db, u.ID, "first", "pt_listlistlistlistlistlist01", 0)
	mustCreateProject(t, db, u.ID, "second", "pt_listlistlistlistlistlist02", 0)
	for i := 0; i < 2; i++ {
		if _, err := db.AppendVisit(ctx, &models.Visit{ProjectID: p1.ID}); err != nil {
			t.Fatalf("AppendVisit() error = %v", err)
		}
	}

	projects, err := db.ListProjectsByOwner(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListProjectsByOwner() error = %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("ListProjectsByOwner() length = %d, want 2", len(projects))
	}
	counts := map[string]int{}
	for _, p := range projects {
		counts[p.Name] = p.VisitCount
	}
	if counts["first"] != 2 || counts["second"] != 0 {
		t.Errorf("visit counts = %v, want first=2 second=0", counts)
	}
}

func TestPaymentLog(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	ctx := context.Background()
	u := mustCreateUser(t, db, "payer@example.com")
	p := mustCreateProject(t, db, u.ID, "shop", "pt_paypaypaypaypaypaypaypay01", 0)

	first := &models.Payment{
		ProjectID:  p.ID,
		AmountCent: 1999,
		Currency:   "USD",
		Reference:  "ch_001",
		OccurredAt: time.Now().Add(-time.Hour),
	}
	second := &models.Payment{
		ProjectID:  p.ID,
		AmountCent: 4999,
		Currency:   "USD",
		Reference:  "ch_002",
		OccurredAt: time.Now(),
	}
	for _, payment := range []*models.Payment{first, second} {
		if err := db.InsertPayment(ctx, payment); err != nil {
			t.Fatalf("InsertPayment() error = %v", err)
		}
	}

	payments, err := db.ListPayments(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListPayments() error = %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("ListPayments() length = %d, want 2", len(payments))
	}
	if payments[0].Reference != "ch_002" {
		t.Errorf("ListPayments()[0].Reference = %q, want newest first", payments[0].Reference)
	}
	if payments[0].AmountCent != 4999 {
		t.Errorf("ListPayments()[0].AmountCent = %d, want 4999", payments[0].AmountCent)
	}
}
