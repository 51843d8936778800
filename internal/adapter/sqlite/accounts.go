package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/garagedesk/internal/domain"
)

// CreateSuperAdmin inserts a only while no active super-admin exists. The
// check and the insert are one statement, so concurrent setups cannot both win.
func (s *Store) CreateSuperAdmin(ctx context.Context, a domain.SuperAdmin) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO super_admins (id, email, name, password_hash, active, created_at)
		 SELECT ?, ?, ?, ?, ?, ?
		 WHERE NOT EXISTS (SELECT 1 FROM super_admins WHERE active = 1)`,
		a.ID, a.Email, a.Name, a.PasswordHash, a.Active, a.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.EmailConflictError{Email: a.Email}
		}
		return fmt.Errorf("inserting super-admin: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting super-admin: %w", err)
	}
	if n == 0 {
		return domain.ErrSuperAdminExists
	}
	return nil
}

func (s *Store) GetSuperAdmin(ctx context.Context, id string) (domain.SuperAdmin, error) {
	return scanSuperAdmin(s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, active, created_at
		 FROM super_admins WHERE id = ?`, id,
	))
}

func (s *Store) GetSuperAdminByEmail(ctx context.Context, email string) (domain.SuperAdmin, error) {
	return scanSuperAdmin(s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, active, created_at
		 FROM super_admins WHERE email = ?`, domain.NormalizeEmail(email),
	))
}

func (s *Store) CountActiveSuperAdmins(ctx context.Context) (int, error) {
	return s.count(ctx, "counting super-admins", `SELECT COUNT(*) FROM super_admins WHERE active = 1`)
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, organisation_id, email, name, role, password_hash, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.OrganisationID, u.Email, u.Name, string(u.Role), u.PasswordHash, u.Active,
		u.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.EmailConflictError{Email: u.Email}
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, organisation_id, email, name, role, password_hash, active, created_at
		 FROM users WHERE id = ?`, id,
	))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, organisation_id, email, name, role, password_hash, active, created_at
		 FROM users WHERE email = ?`, domain.NormalizeEmail(email),
	))
}

func (s *Store) ListUsers(ctx context.Context, organisationID string) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, organisation_id, email, name, role, password_hash, active, created_at
		 FROM users WHERE organisation_id = ? ORDER BY created_at, email`, organisationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// CountAdmins counts active admins of one organisation, or of every
// organisation when organisationID is empty.
func (s *Store) CountAdmins(ctx context.Context, organisationID string) (int, error) {
	if organisationID == "" {
		return s.count(ctx, "counting admins",
			`SELECT COUNT(*) FROM users WHERE role = ? AND active = 1`, string(domain.RoleAdmin))
	}
	return s.count(ctx, "counting admins",
		`SELECT COUNT(*) FROM users WHERE organisation_id = ? AND role = ? AND active = 1`,
		organisationID, string(domain.RoleAdmin))
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuperAdmin(row rowScanner) (domain.SuperAdmin, error) {
	var a domain.SuperAdmin
	var createdAt string

	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.Active, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SuperAdmin{}, domain.ErrNotFound
		}
		return domain.SuperAdmin{}, fmt.Errorf("scanning super-admin: %w", err)
	}

	a.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return a, nil
}

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	var role, createdAt string

	err := row.Scan(&u.ID, &u.OrganisationID, &u.Email, &u.Name, &role, &u.PasswordHash, &u.Active, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = domain.Role(role)
	u.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	return u, nil
}
