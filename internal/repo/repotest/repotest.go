// Package repotest provides a migrated, throwaway SQLite repository for
// tests.
package repotest

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"eventide/internal/model"
	"eventide/internal/repo"
)

// New returns a repository over a fresh database in t's temp dir.
func New(t testing.TB) repo.Repository {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.Nop()
	r, err := repo.New(db, repo.SQLite, &log)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	if err := r.MigrateUp(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return r
}

// PostgresDSNEnv names the variable holding a Postgres DSN for tests that
// need real row locking. Those tests are skipped when it is unset.
const PostgresDSNEnv = "EVENTIDE_TEST_POSTGRES_DSN"

// Postgres returns a repository over a fresh schema in the database named
// by PostgresDSNEnv. The schema is dropped when t finishes.
func Postgres(t testing.TB) repo.Repository {
	t.Helper()
	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", PostgresDSNEnv)
	}

	admin, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = admin.Close() })
	schema := "eventide_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.Exec(`CREATE SCHEMA ` + schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() { _, _ = admin.Exec(`DROP SCHEMA ` + schema + ` CASCADE`) })

	db, err := dbpg.New(withSearchPath(dsn, schema), nil, &dbpg.Options{MaxOpenConns: 32, MaxIdleConns: 8})
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Master.Close() })

	log := zerolog.Nop()
	r, err := repo.NewRepository(db, &log)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	if err := r.MigrateUp(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return r
}

// withSearchPath pins every connection of dsn to schema. lib/pq passes
// unknown keys through as run-time parameters.
func withSearchPath(dsn, schema string) string {
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + schema
	}
	return dsn + " search_path=" + schema
}

// User inserts a user with the given role.
func User(t testing.TB, r repo.Repository, role model.Role) *model.UserProfile {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.NewString()
	u := &model.UserProfile{
		ID:        id,
		Email:     id + "@example.test",
		Role:      role,
		Name:      "user " + id[:8],
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// Event inserts an event owned by organizerID with the given status.
func Event(t testing.TB, r repo.Repository, organizerID string, capacity int, status model.EventStatus) *model.Event {
	t.Helper()
	now := time.Now().UTC()
	e := &model.Event{
		ID:          uuid.NewString(),
		Name:        "Tech Talk",
		Description: "talk",
		StartsAt:    now.Add(72 * time.Hour).Truncate(time.Second),
		Venue:       "Hall A",
		Capacity:    capacity,
		OrganizerID: organizerID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.CreateEvent(context.Background(), e); err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e
}

// Registration builds a pending registration for student at event; it is
// not stored.
func Registration(eventID, studentID string) *model.Registration {
	now := time.Now().UTC()
	return &model.Registration{
		ID:           uuid.NewString(),
		EventID:      eventID,
		StudentID:    studentID,
		Status:       model.RegistrationPending,
		QRCode:       uuid.NewString(),
		RegisteredAt: now,
		UpdatedAt:    now,
	}
}
