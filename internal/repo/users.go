package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventide/internal/apperr"
	"eventide/internal/model"
)

const userColumns = `id, email, role, name, phone, department, register_no, batch_year,
	created_at, updated_at, password_hash, google_id`

func scanUser(row rowScanner) (*model.UserProfile, error) {
	var (
		u        model.UserProfile
		hash     sql.NullString
		googleID sql.NullString
	)
	if err := row.Scan(
		&u.ID, &u.Email, &u.Role, &u.Name, &u.Phone, &u.Department, &u.RegisterNo, &u.BatchYear,
		&u.CreatedAt, &u.UpdatedAt, &hash, &googleID,
	); err != nil {
		return nil, err
	}
	if hash.Valid {
		u.PasswordHash = &hash.String
	}
	if googleID.Valid {
		u.GoogleID = &googleID.String
	}
	return &u, nil
}

// CreateUser inserts a profile. A duplicate email or Google identity is
// reported as Conflict.
func (r *repository) CreateUser(ctx context.Context, u *model.UserProfile) error {
	query := r.q(`
		INSERT INTO users (id, email, password_hash, google_id, role, name, phone, department,
		                   register_no, batch_year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.GoogleID, u.Role, u.Name, u.Phone, u.Department,
		u.RegisterNo, u.BatchYear, u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindConflict, "an account with this email already exists")
		}
		return classify(err, "insert user")
	}
	return nil
}

func (r *repository) getUser(ctx context.Context, where string, arg any) (*model.UserProfile, error) {
	query := r.q(`SELECT ` + userColumns + ` FROM users WHERE ` + where + ` = ?`)
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, classify(err, "get user")
	}
	return u, nil
}

func (r *repository) GetUserByID(ctx context.Context, id string) (*model.UserProfile, error) {
	return r.getUser(ctx, "id", id)
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	return r.getUser(ctx, "email", email)
}

func (r *repository) GetUserByGoogleID(ctx context.Context, googleID string) (*model.UserProfile, error) {
	return r.getUser(ctx, "google_id", googleID)
}

func (r *repository) ListUsers(ctx context.Context) ([]model.UserProfile, error) {
	rows, err := r.reader.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email ASC`)
	if err != nil {
		return nil, classify(err, "list users")
	}
	defer rows.Close()

	users := make([]model.UserProfile, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classify(err, "scan user")
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "list users")
	}
	return users, nil
}

func (r *repository) UpdateUserRole(ctx context.Context, id string, role model.Role, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`), role, at.UTC(), id)
	if err != nil {
		return classify(err, "update user role")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (r *repository) LinkGoogleID(ctx context.Context, id, googleID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.q(`UPDATE users SET google_id = ?, updated_at = ? WHERE id = ?`), googleID, at.UTC(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.New(apperr.KindConflict, "google account is linked to another user")
		}
		return classify(err, "link google account")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

func (r *repository) UpdateProfile(ctx context.Context, id string, f model.ProfileFields, at time.Time) error {
	query := r.q(`
		UPDATE users
		SET name = ?, phone = ?, department = ?, register_no = ?, batch_year = ?, updated_at = ?
		WHERE id = ?
	`)
	res, err := r.db.ExecContext(ctx, query, f.Name, f.Phone, f.Department, f.RegisterNo, f.BatchYear, at.UTC(), id)
	if err != nil {
		return classify(err, "update profile")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}
