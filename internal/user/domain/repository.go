package domain

import (
	"context"
	"time"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetActive(ctx context.Context, id string, active bool) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	// SetTwoFactor stores the 2FA state. An empty secret clears it; nil backupCodes
	// leaves the stored codes unchanged.
	SetTwoFactor(ctx context.Context, id string, enabled bool, secret string, backupCodes []string) error
	// ConsumeBackupCode removes one hashed backup code. It reports false if the hash was already gone.
	ConsumeBackupCode(ctx context.Context, id, codeHash string) (bool, error)
	List(ctx context.Context, filter UserFilter) ([]*User, int64, error)
	CountByRole(ctx context.Context) (*RoleCounts, error)
}
