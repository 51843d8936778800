package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/garagedesk/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// Store implements the domain repositories using SQLite.
type Store struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready store.
func New(dataSourceName string) (*Store, error) {
	db, err := Open(dataSourceName)
	if err != nil {
		return nil, err
	}
	return NewFromDB(db)
}

// Open opens and configures a SQLite connection without migrating it.
func Open(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, Configure(db, dataSourceName)
}

// Configure applies the pragmas the store relies on. An in-memory database
// exists per connection, so its pool is pinned to a single connection.
func Configure(db *sql.DB, dataSourceName string) error {
	if strings.Contains(dataSourceName, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Probes run concurrently with the River worker on the same file.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("setting busy timeout: %w", err)
	}

	return nil
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready store.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*Store, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (s *Store) DB() *sql.DB {
	return s.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

func (s *Store) CreateOrganisation(ctx context.Context, o domain.Organisation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organisations (id, name, slug, plan, email, phone, address, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, o.Slug, o.Plan, o.Email, o.Phone, o.Address, string(o.Status),
		o.CreatedAt.Format(timeFormat),
		o.UpdatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.SlugConflictError{Slug: o.Slug}
		}
		return fmt.Errorf("inserting organisation: %w", err)
	}
	return nil
}

func (s *Store) GetOrganisation(ctx context.Context, id string) (domain.Organisation, error) {
	var o domain.Organisation
	var status, createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, plan, email, phone, address, status, created_at, updated_at
		 FROM organisations WHERE id = ?`, id,
	).Scan(&o.ID, &o.Name, &o.Slug, &o.Plan, &o.Email, &o.Phone, &o.Address, &status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Organisation{}, domain.ErrNotFound
		}
		return domain.Organisation{}, fmt.Errorf("scanning organisation: %w", err)
	}

	o.Status = domain.OrganisationStatus(status)
	o.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	o.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)

	return o, nil
}

func (s *Store) CountActiveOrganisations(ctx context.Context) (int, error) {
	return s.count(ctx, "counting organisations",
		`SELECT COUNT(*) FROM organisations WHERE status = ?`, string(domain.OrganisationActive))
}

// SetOrganisationStatus suspends or reactivates a tenant.
func (s *Store) SetOrganisationStatus(ctx context.Context, id string, status domain.OrganisationStatus) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE organisations SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(timeFormat), id,
	)
	if err != nil {
		return fmt.Errorf("updating organisation status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (s *Store) count(ctx context.Context, what, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return n, nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
