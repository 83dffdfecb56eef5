package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/learnit/learnit-api/internal/model"
	"github.com/learnit/learnit-api/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userCols = "id,name,email,password_hash,role,is_active,last_login_at,created_at,updated_at"

func scanUser(row interface{ Scan(...interface{}) error }) (model.User, error) {
	var u model.User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, err
}

// Create inserts user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		strings.TrimSpace(name), email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns all users ordered by creation time. Intended for the
// admin roster; password hashes are stripped by the handler layer.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// TouchLastLogin records a successful login.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login_at=UTC_TIMESTAMP() WHERE id=?", id)
	return err
}

// UpdateProfile changes name and/or email. Passing an empty string
// leaves the field unchanged. A duplicate email maps to ErrEmailExists.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, email string) error {
	sets := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)
	if strings.TrimSpace(name) != "" {
		sets = append(sets, "name=?")
		args = append(args, strings.TrimSpace(name))
	}
	if strings.TrimSpace(email) != "" {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(email)))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrEmailExists
	}
	return err
}

// SetRole promotes or demotes a user. Role must be a model.Role* value.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetActive toggles account activation.
func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=? WHERE id=?", active, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ChangePassword verifies the current password before storing a new
// hash. A wrong current password maps to ErrForbidden so handlers can
// surface it as a business-rule rejection rather than a server error.
func (r *UserRepo) ChangePassword(ctx context.Context, id uint64, current, next string, cost int) error {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !utils.VerifyPassword(u.PasswordHash, current) {
		return ErrForbidden
	}
	hash, err := utils.HashPassword(next, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	return err
}

// Delete removes a user. Certifications and bookings cascade via FK.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// requireRow maps a zero-row UPDATE/DELETE to sql.ErrNoRows.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
