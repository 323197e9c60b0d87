package postgres

import (
	"context"
	"errors"
	"fmt"

	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eduquest/user-service/internal/domain/entity"
	"github.com/eduquest/user-service/internal/domain/repository"
)

const uniqueViolation = "23505"

type UserRepository struct {
	pool *pgxpool.Pool
	// dedupeCourses controls whether AppendCourse skips course ids the
	// user already holds. Off by default.
	dedupeCourses bool
}

func NewUserRepository(pool *pgxpool.Pool, dedupeCourses bool) *UserRepository {
	return &UserRepository{pool: pool, dedupeCourses: dedupeCourses}
}

const userColumns = `id, name, email, password_hash, avatar_url, role, is_verified, is_blocked,
	reset_token, reset_code, reset_token_expires, courses, created_at, updated_at`

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.AvatarURL, &u.Role,
		&u.IsVerified, &u.IsBlocked, &u.ResetToken, &u.ResetCode, &u.ResetTokenExpires,
		&u.Courses, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, storeErr("scan user", err)
	}
	return u, nil
}

// storeErr wraps a driver failure so only a coarse code crosses the
// repository boundary.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", repository.ErrStore, op, err)
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, avatar_url, role, is_verified, is_blocked, courses)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, u.Name, u.Email, u.PasswordHash, u.AvatarURL, u.Role, u.IsVerified, u.IsBlocked, u.Courses)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicateEmail
		}
		return storeErr("insert user", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *UserRepository) UpdateName(ctx context.Context, id, name string) error {
	return r.exec(ctx, "update name", `
		UPDATE users SET name = $2, updated_at = now() WHERE id = $1
	`, id, name)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, "update password", `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, id, passwordHash)
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	return r.exec(ctx, "update avatar", `
		UPDATE users SET avatar_url = $2, updated_at = now() WHERE id = $1
	`, id, avatarURL)
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET role = $2, updated_at = now() WHERE id = $1
		RETURNING `+userColumns, id, role)
	return scanUser(row)
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, token, code string, expires time.Time) error {
	return r.exec(ctx, "set reset token", `
		UPDATE users
		SET reset_token = $2, reset_code = $3, reset_token_expires = $4, updated_at = now()
		WHERE id = $1
	`, id, token, code, expires)
}

func (r *UserRepository) CompleteReset(ctx context.Context, id, passwordHash string) error {
	// Single statement so the password write and the reset-field clear are
	// observable together. The reset_token guard makes a second reset
	// against cleared fields fail instead of silently rewriting the hash.
	return r.exec(ctx, "complete reset", `
		UPDATE users
		SET password_hash = $2,
			reset_token = NULL, reset_code = NULL, reset_token_expires = NULL,
			updated_at = now()
		WHERE id = $1 AND reset_token IS NOT NULL
	`, id, passwordHash)
}

func (r *UserRepository) AppendCourse(ctx context.Context, id, courseID string) error {
	if r.dedupeCourses {
		return r.exec(ctx, "append course", `
			UPDATE users
			SET courses = CASE WHEN $2 = ANY(courses) THEN courses ELSE array_append(courses, $2) END,
				updated_at = now()
			WHERE id = $1
		`, id, courseID)
	}
	return r.exec(ctx, "append course", `
		UPDATE users SET courses = array_append(courses, $2), updated_at = now() WHERE id = $1
	`, id, courseID)
}

func (r *UserRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.exec(ctx, "set verified", `
		UPDATE users SET is_verified = $2, updated_at = now() WHERE id = $1
	`, id, verified)
}

func (r *UserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.exec(ctx, "set blocked", `
		UPDATE users SET is_blocked = $2, updated_at = now() WHERE id = $1
	`, id, blocked)
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return storeErr("delete user", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE role = $1 ORDER BY created_at
	`, role)
	if err != nil {
		return nil, storeErr("list by role", err)
	}
	defer rows.Close()

	users := make([]*entity.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list by role", err)
	}
	return users, nil
}

func (r *UserRepository) MonthlySignups(ctx context.Context, role entity.Role, months int) ([]entity.MonthlyCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM') AS month, count(*)
		FROM users
		WHERE role = $1
		  AND created_at >= date_trunc('month', now()) - make_interval(months => $2 - 1)
		GROUP BY 1
		ORDER BY 1
	`, role, months)
	if err != nil {
		return nil, storeErr("monthly signups", err)
	}
	defer rows.Close()

	out := make([]entity.MonthlyCount, 0, months)
	for rows.Next() {
		var m entity.MonthlyCount
		if err := rows.Scan(&m.Month, &m.Count); err != nil {
			return nil, storeErr("monthly signups", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("monthly signups", err)
	}
	return out, nil
}

func (r *UserRepository) exec(ctx context.Context, op, sql string, args ...any) error {
	res, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return storeErr(op, err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
