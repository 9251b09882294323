package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/merit-ol/mppms/internal/domain"
)

type UserRepository struct {
	s *Store
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

func (r *UserRepository) find(match func(*domain.User) bool) *domain.User {
	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u)
		}
	}
	return nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, user.Email) }) != nil {
		return domain.Invalid("email", "already registered")
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.AuthProvider == "" {
		user.AuthProvider = "email"
	}
	if !user.Role.Valid() {
		user.Role = domain.RoleStaff
	}
	now := r.s.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if u, ok := r.s.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.find(func(u *domain.User) bool { return u.Email == email }), nil
}

func (r *UserRepository) GetByProviderID(_ context.Context, provider, providerID string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.find(func(u *domain.User) bool {
		return u.AuthProvider == provider && u.ProviderID == providerID
	}), nil
}

func (r *UserRepository) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.users[user.ID]
	if !ok {
		return domain.ErrNotFound
	}
	user.UpdatedAt = r.s.now()
	stored.Email = user.Email
	stored.Name = user.Name
	stored.AuthProvider = user.AuthProvider
	stored.ProviderID = user.ProviderID
	stored.UpdatedAt = user.UpdatedAt
	return nil
}

func (r *UserRepository) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if u, ok := r.s.users[id]; ok {
		now := r.s.now()
		u.LastLoginAt = &now
	}
	return nil
}

// ownerID returns the current super-admin, if any. Caller holds the lock.
func (r *UserRepository) ownerID() (uuid.UUID, bool) {
	for id, u := range r.s.users {
		if u.Role == domain.RoleSuperAdmin {
			return id, true
		}
	}
	return uuid.Nil, false
}

func (r *UserRepository) SetRole(_ context.Context, id uuid.UUID, role domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	if role == domain.RoleSuperAdmin {
		if owner, exists := r.ownerID(); exists && owner != id {
			return domain.ErrForbidden
		}
	}
	u.Role = role
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *UserRepository) SetBlocked(_ context.Context, id uuid.UUID, blocked bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Blocked = blocked
	u.UpdatedAt = r.s.now()
	return nil
}

func (r *UserRepository) PromoteOwner(_ context.Context, id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return false, nil
	}
	if _, exists := r.ownerID(); exists {
		return false, nil
	}
	u.Role = domain.RoleSuperAdmin
	u.UpdatedAt = r.s.now()
	return true, nil
}

func (r *UserRepository) TransferOwnership(_ context.Context, from, to uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.users[from]
	if !ok || current.Role != domain.RoleSuperAdmin {
		return domain.ErrForbidden
	}
	next, ok := r.s.users[to]
	if !ok {
		return domain.ErrNotFound
	}

	now := r.s.now()
	current.Role = domain.RoleAdmin
	current.UpdatedAt = now
	next.Role = domain.RoleSuperAdmin
	next.Blocked = false
	next.UpdatedAt = now
	return nil
}

func (r *UserRepository) ListAll(_ context.Context, limit, offset int) ([]*domain.User, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		all = append(all, cloneUser(u))
	}
	slices.SortFunc(all, func(a, b *domain.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return window(all, limit, offset), len(all), nil
}
