package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bongoexpress/cargo-api/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, req *domain.CreateUserRequest, passwordHash string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindCustomerByPhone(ctx context.Context, phone string) (*domain.User, error)
	FindCustomerByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error)
	TwoFactorSecret(ctx context.Context, id int64) (string, error)
	List(ctx context.Context, role, search string, limit, offset int) ([]domain.User, int, error)
	ListAdminIDs(ctx context.Context) ([]int64, error)
	StaffList(ctx context.Context) ([]domain.StaffListItem, error)
	UpdateProfile(ctx context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.User, error)
	Update(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id int64) error
	SetTwoFactorSecret(ctx context.Context, id int64, secret string) error
	EnableTwoFactor(ctx context.Context, id int64) error
	DisableTwoFactor(ctx context.Context, id int64) error
	TwoFactorRecoveryCodes(ctx context.Context, id int64) ([]string, error)
	SetTwoFactorRecoveryCodes(ctx context.Context, id int64, codeHashes []string) error
	SetResetToken(ctx context.Context, id int64, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, id int64) error
	ResetPassword(ctx context.Context, id int64, passwordHash string) error
	CountCustomers(ctx context.Context) (int, error)
	CountCustomersCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)
	RecentCustomers(ctx context.Context, limit int) ([]domain.User, error)
	StaffSummary(ctx context.Context) (*domain.StaffSummary, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// Secrets (password hash included, it is never serialized) ride along on
// every read; the 2FA secret and reset token are selected explicitly so
// ordinary reads can never leak them.
const userCols = `id, name, email, password_hash, role, status, phone, branch, profile_picture,
	last_login, two_factor_enabled, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.Phone, &u.Branch,
		&u.ProfilePicture, &u.LastLogin, &u.TwoFactorEnabled, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// IsUniqueViolation reports whether err is a Postgres duplicate-key error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *userRepository) Create(ctx context.Context, req *domain.CreateUserRequest, passwordHash string) (*domain.User, error) {
	const q = `
		INSERT INTO users (name, email, password_hash, role, status, phone, branch)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanUser(r.pool.QueryRow(ctx, q,
		req.Name, req.Email, passwordHash, req.Role, req.Status, req.Phone, req.Branch))
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE lower(email) = lower($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindCustomerByPhone(ctx context.Context, phone string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE phone = $1 AND role = 'customer' LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) FindCustomerByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE lower(email) = lower($1) AND role = 'customer' LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// TwoFactorSecret selects the stored TOTP secret for a verification step.
func (r *userRepository) TwoFactorSecret(ctx context.Context, id int64) (string, error) {
	const q = `SELECT COALESCE(two_factor_secret, '') FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var secret string
	err := r.pool.QueryRow(ctx, q, id).Scan(&secret)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return secret, err
}

func (r *userRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users
		WHERE password_reset_token = $1 AND password_reset_expires > now()`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, tokenHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) List(ctx context.Context, role, search string, limit, offset int) ([]domain.User, int, error) {
	where := `WHERE role = $1`
	args := []any{role}
	if search != "" {
		where += ` AND (name ILIKE $2 OR email ILIKE $2 OR phone ILIKE $2)`
		args = append(args, "%"+strings.TrimSpace(search)+"%")
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + userCols + ` FROM users ` + where + ` ORDER BY created_at DESC`
	if search != "" {
		q += ` LIMIT $3 OFFSET $4`
	} else {
		q += ` LIMIT $2 OFFSET $3`
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

func (r *userRepository) ListAdminIDs(ctx context.Context) ([]int64, error) {
	const q = `SELECT id FROM users WHERE role = 'admin'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *userRepository) StaffList(ctx context.Context) ([]domain.StaffListItem, error) {
	const q = `SELECT id, name FROM users WHERE role = 'staff' AND status = 'Active' ORDER BY name`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.StaffListItem
	for rows.Next() {
		var it domain.StaffListItem
		if err := rows.Scan(&it.ID, &it.Name); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *userRepository) UpdateProfile(ctx context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.User, error) {
	const q = `
		UPDATE users
		SET
			name = COALESCE($2, name),
			email = COALESCE(lower($3), email),
			phone = COALESCE($4, phone),
			profile_picture = COALESCE($5, profile_picture),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, req.Name, req.Email, req.Phone, req.ProfilePicture))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) Update(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	const q = `
		UPDATE users
		SET
			name = COALESCE($2, name),
			email = COALESCE(lower($3), email),
			phone = COALESCE($4, phone),
			branch = COALESCE($5, branch),
			status = COALESCE($6, status),
			role = COALESCE($7, role),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id, req.Name, req.Email, req.Phone, req.Branch, req.Status, req.Role))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, q, id, passwordHash)
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64) error {
	const q = `UPDATE users SET last_login = now() WHERE id = $1`
	return r.exec(ctx, q, id)
}

func (r *userRepository) SetTwoFactorSecret(ctx context.Context, id int64, secret string) error {
	const q = `UPDATE users SET two_factor_secret = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, q, id, secret)
}

func (r *userRepository) EnableTwoFactor(ctx context.Context, id int64) error {
	const q = `UPDATE users SET two_factor_enabled = true, updated_at = now() WHERE id = $1`
	return r.exec(ctx, q, id)
}

func (r *userRepository) DisableTwoFactor(ctx context.Context, id int64) error {
	const q = `UPDATE users
		SET two_factor_enabled = false, two_factor_secret = NULL, two_factor_recovery = '{}', updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, q, id)
}

func (r *userRepository) TwoFactorRecoveryCodes(ctx context.Context, id int64) ([]string, error) {
	const q = `SELECT two_factor_recovery FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var hashes []string
	err := r.pool.QueryRow(ctx, q, id).Scan(&hashes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return hashes, err
}

func (r *userRepository) SetTwoFactorRecoveryCodes(ctx context.Context, id int64, codeHashes []string) error {
	const q = `UPDATE users SET two_factor_recovery = $2, updated_at = now() WHERE id = $1`
	return r.exec(ctx, q, id, codeHashes)
}

func (r *userRepository) SetResetToken(ctx context.Context, id int64, tokenHash string, expires time.Time) error {
	const q = `UPDATE users SET password_reset_token = $2, password_reset_expires = $3 WHERE id = $1`
	return r.exec(ctx, q, id, tokenHash, expires)
}

func (r *userRepository) ClearResetToken(ctx context.Context, id int64) error {
	const q = `UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL WHERE id = $1`
	return r.exec(ctx, q, id)
}

// ResetPassword replaces the hash and clears the reset fields in one statement.
func (r *userRepository) ResetPassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `UPDATE users
		SET password_hash = $2, password_reset_token = NULL, password_reset_expires = NULL, updated_at = now()
		WHERE id = $1`
	return r.exec(ctx, q, id, passwordHash)
}

func (r *userRepository) CountCustomers(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM users WHERE role = 'customer'`)
}

func (r *userRepository) CountCustomersCreatedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	const q = `SELECT count(*) FROM users WHERE role = 'customer' AND created_at <= $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, q, cutoff).Scan(&n)
	return n, err
}

func (r *userRepository) RecentCustomers(ctx context.Context, limit int) ([]domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE role = 'customer' ORDER BY created_at DESC LIMIT $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepository) StaffSummary(ctx context.Context) (*domain.StaffSummary, error) {
	const q = `SELECT
		count(*),
		count(*) FILTER (WHERE status = 'Active'),
		count(*) FILTER (WHERE status = 'Inactive'),
		count(*) FILTER (WHERE status = 'Idle')
	FROM users WHERE role = 'staff'`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var s domain.StaffSummary
	err := r.pool.QueryRow(ctx, q).Scan(&s.Total, &s.Active, &s.Inactive, &s.Idle)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *userRepository) exec(ctx context.Context, q string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) count(ctx context.Context, q string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, q).Scan(&n)
	return n, err
}
