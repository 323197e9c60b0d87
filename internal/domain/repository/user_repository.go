package repository

import (
	"context"
	"errors"
	"time"

	"github.com/eduquest/user-service/internal/domain/entity"
)

// Store-level errors. Implementations wrap driver failures in ErrStore so
// the domain layer stays transport-agnostic while callers can still
// distinguish "missing row" from "store broke".
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrStore          = errors.New("store failure")
)

// UserRepository defines the persistence contract required by the identity
// service. Single-row updates rely on the store's native atomicity.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateName(ctx context.Context, id, name string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	UpdateRole(ctx context.Context, id string, role entity.Role) (*entity.User, error)
	SetResetToken(ctx context.Context, id, token, code string, expires time.Time) error
	// CompleteReset writes the new password hash and clears the reset
	// fields in a single statement. It fails with ErrNotFound when the
	// user has no open reset flow.
	CompleteReset(ctx context.Context, id, passwordHash string) error
	AppendCourse(ctx context.Context, id, courseID string) error
	SetVerified(ctx context.Context, id string, verified bool) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	Delete(ctx context.Context, id string) error
	ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error)
	MonthlySignups(ctx context.Context, role entity.Role, months int) ([]entity.MonthlyCount, error)
}
