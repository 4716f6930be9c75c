package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"eventide/internal/model"
	"eventide/migrations"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

type Repository interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	UpdateEventDetails(ctx context.Context, e *model.Event) error
	UpdateEventStatus(ctx context.Context, id string, from, to model.EventStatus, at time.Time) error
	SetEventAttachment(ctx context.Context, id string, kind Attachment, url string, at time.Time) error
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	ListPublishedEvents(ctx context.Context) ([]model.Event, error)
	ListEventSummaries(ctx context.Context, organizerID string) ([]model.EventSummary, error)

	CreateRegistrationTx(ctx context.Context, reg *model.Registration) error
	TransitionRegistrationTx(ctx context.Context, reg *model.Registration, to model.RegistrationStatus, at time.Time) error
	MarkAttended(ctx context.Context, eventID, code string, at time.Time) (bool, error)
	GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error)
	GetRegistrationByCode(ctx context.Context, eventID, code string) (*model.Registration, error)
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	ListRegistrationsByStudent(ctx context.Context, studentID string) ([]model.Registration, error)
	SetCertificateURL(ctx context.Context, registrationID, url string, at time.Time) error

	CreateUser(ctx context.Context, u *model.UserProfile) error
	GetUserByID(ctx context.Context, id string) (*model.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.UserProfile, error)
	ListUsers(ctx context.Context) ([]model.UserProfile, error)
	UpdateUserRole(ctx context.Context, id string, role model.Role, at time.Time) error
	UpdateProfile(ctx context.Context, id string, fields model.ProfileFields, at time.Time) error
	LinkGoogleID(ctx context.Context, id, googleID string, at time.Time) error

	UpsertCertificateTemplate(ctx context.Context, t *model.CertificateTemplate) error
	GetCertificateTemplate(ctx context.Context, eventID string) (*model.CertificateTemplate, error)

	MigrateUp(ctx context.Context) error
}

// querier is satisfied by *sql.DB, *sql.Tx and *dbpg.DB.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repository struct {
	db      *sql.DB
	reader  querier
	dialect Dialect
	log     *zerolog.Logger
}

// NewRepository builds a Postgres-backed repository. Writes and
// transactions go to the master; plain reads go through dbpg, which
// spreads them over the replicas.
func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db.Master, reader: db, dialect: Postgres, log: log}, nil
}

// New builds a repository over a single database handle.
func New(db *sql.DB, dialect Dialect, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	switch dialect {
	case Postgres, SQLite:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	return &repository{db: db, reader: db, dialect: dialect, log: log}, nil
}

// q rewrites '?' placeholders into the dialect's form.
func (r *repository) q(query string) string {
	if r.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (r *repository) MigrateUp(ctx context.Context) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	var m *migrate.Migrate
	switch r.dialect {
	case Postgres:
		conn, err := r.db.Conn(ctx)
		if err != nil {
			return fmt.Errorf("failed to acquire migration connection: %w", err)
		}
		drv, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to init postgres migration driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "postgres", drv)
		if err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to init migrator: %w", err)
		}
		// Closing the migrator releases the connection back to the pool.
		defer m.Close()
	case SQLite:
		// The sqlite driver closes the shared *sql.DB on Close, so the
		// migrator is left to the garbage collector.
		drv, err := sqlite.WithInstance(r.db, &sqlite.Config{})
		if err != nil {
			return fmt.Errorf("failed to init sqlite migration driver: %w", err)
		}
		m, err = migrate.NewWithInstance("iofs", src, "sqlite", drv)
		if err != nil {
			return fmt.Errorf("failed to init migrator: %w", err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	r.log.Info().Str("dialect", string(r.dialect)).Msg("migrations applied")
	return nil
}

func (r *repository) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.log.Warn().Err(err).Msg("rollback failed")
	}
}
