package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Name         string     `json:"name,omitempty"`
	AuthProvider string     `json:"auth_provider"`
	ProviderID   string     `json:"provider_id,omitempty"`
	Role         Role       `json:"role"`
	Blocked      bool       `json:"is_blocked"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByProviderID(ctx context.Context, provider, providerID string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	SetRole(ctx context.Context, id uuid.UUID, role Role) error
	SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error
	// PromoteOwner grants super-admin to id only if nobody holds it yet.
	// It reports whether the promotion happened.
	PromoteOwner(ctx context.Context, id uuid.UUID) (bool, error)
	// TransferOwnership demotes from to admin and promotes to to super-admin
	// as one operation.
	TransferOwnership(ctx context.Context, from, to uuid.UUID) error
	ListAll(ctx context.Context, limit, offset int) ([]*User, int, error)
}
