package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Audricteel/client-voice-tracker/internal/db"
	"github.com/Audricteel/client-voice-tracker/internal/models"
)

func openTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	sqdb, err := db.OpenSQLite(path, 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.ApplyMigrationFile(sqdb, filepath.Join("..", "..", "migrations", "001_init.sql")); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	return sqdb
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	sqdb := openTestDB(t, filepath.Join(t.TempDir(), "app.db"))
	t.Cleanup(func() { _ = sqdb.Close() })
	return New(sqdb)
}

func TestSeedDefaultUsersOnlyWhenEmpty(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.SeedDefaultUsers(ctx, "hash"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.SeedDefaultUsers(ctx, "hash"); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	n, err := st.CountUsers(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 seeded users, got %d", n)
	}

	users, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	roles := map[models.Role]bool{}
	for _, u := range users {
		roles[u.Role] = true
	}
	if !roles[models.RoleSuperadmin] || !roles[models.RoleAuditor] || !roles[models.RoleUser] {
		t.Fatalf("expected one seed per role, got %v", roles)
	}
}

func TestCreateUserDuplicateEmailConflict(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	u := models.User{FirstName: "A", LastName: "B", Email: "a@example.com", PasswordHash: "h", Birthday: "1990-01-01", Company: "C", Role: models.RoleUser, Status: models.UserActive}
	if _, err := st.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Uniqueness is the store's invariant, case-insensitively on the
	// normalized email.
	u.Email = "A@Example.com"
	if _, err := st.CreateUser(ctx, u); err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	n, _ := st.CountUsers(ctx)
	if n != 1 {
		t.Fatalf("expected 1 user after conflict, got %d", n)
	}
}

func TestUpdateUserPartialAndConflict(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first, err := st.CreateUser(ctx, models.User{FirstName: "A", LastName: "B", Email: "a@example.com", PasswordHash: "h", Birthday: "1990-01-01", Company: "C", Role: models.RoleUser, Status: models.UserActive})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := st.CreateUser(ctx, models.User{FirstName: "D", LastName: "E", Email: "d@example.com", PasswordHash: "h", Birthday: "1991-01-01", Company: "C", Role: models.RoleAuditor, Status: models.UserActive})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	company := "NewCo"
	status := models.UserInactive
	got, err := st.UpdateUser(ctx, first.ID, UserUpdate{Company: &company, Status: &status})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Company != "NewCo" || got.Status != models.UserInactive || got.Email != "a@example.com" || got.Role != models.RoleUser {
		t.Fatalf("partial update wrong: %+v", got)
	}

	email := "a@example.com"
	if _, err := st.UpdateUser(ctx, second.ID, UserUpdate{Email: &email}); err != ErrConflict {
		t.Fatalf("expected ErrConflict on email collision, got %v", err)
	}

	if _, err := st.UpdateUser(ctx, "missing", UserUpdate{Company: &company}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUserAbsentIsNoOp(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	if err := st.SeedDefaultUsers(ctx, "hash"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if err := st.DeleteUser(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	after, err := st.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("collection changed by failed delete")
	}
}

func TestFeedbackIdentifiersAreSequential(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		id, err := st.AppendFeedback(ctx, sampleFeedback(i))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if id != int64(i) {
			t.Fatalf("expected id %d, got %d", i, id)
		}
	}
}

func TestFeedbackRoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.db")
	ctx := context.Background()

	sqdb := openTestDB(t, path)
	st := New(sqdb)
	const n = 5
	want := make([]models.Feedback, 0, n)
	for i := 1; i <= n; i++ {
		f := sampleFeedback(i)
		id, err := st.AppendFeedback(ctx, f)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		f.ID = id
		want = append(want, f)
	}
	if err := sqdb.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sqdb = openTestDB(t, path)
	defer sqdb.Close()
	got, err := New(sqdb).ListFeedback(ctx)
	if err != nil {
		t.Fatalf("list after reopen: %v", err)
	}
	if len(got) != n {
		t.Fatalf("expected %d rows after reopen, got %d", n, len(got))
	}
	for i := range want {
		// Compare times explicitly: SQLite round-trips the instant but not
		// the Go monotonic clock reading or location.
		if !got[i].SubmittedAt.Equal(want[i].SubmittedAt) {
			t.Fatalf("row %d submitted_at mismatch: %v vs %v", i, got[i].SubmittedAt, want[i].SubmittedAt)
		}
		got[i].SubmittedAt = want[i].SubmittedAt
		if !reflect.DeepEqual(got[i], want[i]) {
			t.Fatalf("row %d mismatch:\n got %+v\nwant %+v", i, got[i], want[i])
		}
	}
}

func sampleFeedback(i int) models.Feedback {
	email := fmt.Sprintf("customer%d@example.com", i)
	return models.Feedback{
		ServiceProvider:  fmt.Sprintf("Provider %d", i),
		BrandPlatform:    "LuckyPlay",
		Month:            "2024-05",
		CustomerEmail:    &email,
		FeedbackType:     models.FeedbackNegative,
		Particulars:      fmt.Sprintf("Complaint %d about payout delays.", i),
		DateTimeReceived: "2024-05-12T14:30",
		ActionTaken:      "Escalated to payments team.",
		HoursToAction:    "2 hours 30 minutes",
		Status:           models.FeedbackOpen,
		SubmittedBy:      "Jane B Smith",
		SubmittedAt:      time.Date(2024, 5, 12, 15, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
	}
}
