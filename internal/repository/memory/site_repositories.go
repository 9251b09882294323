package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/merit-ol/mppms/internal/domain"
)

type RefreshTokenRepository struct {
	s *Store
}

func (r *RefreshTokenRepository) Create(_ context.Context, token *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = r.s.now()
	c := *token
	r.s.tokens[token.TokenHash] = &c
	return nil
}

func (r *RefreshTokenRepository) GetByTokenHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[tokenHash]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (r *RefreshTokenRepository) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for hash, t := range r.s.tokens {
		if t.UserID == userID {
			delete(r.s.tokens, hash)
		}
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.tokens, tokenHash)
	return nil
}

func (r *RefreshTokenRepository) DeleteExpired(_ context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for hash, t := range r.s.tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.s.tokens, hash)
		}
	}
	return nil
}

type NotificationRepository struct {
	s *Store
}

func (r *NotificationRepository) Create(_ context.Context, n *domain.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = r.s.now()
	c := *n
	r.s.notifications = append(r.s.notifications, &c)
	return nil
}

func (r *NotificationRepository) ListRecent(_ context.Context, limit, offset int) ([]*domain.Notification, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*domain.Notification, len(r.s.notifications))
	for i, n := range r.s.notifications {
		c := *n
		all[i] = &c
	}
	// Append order is creation order; reverse it, then let the timestamp win.
	slices.Reverse(all)
	slices.SortStableFunc(all, func(a, b *domain.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return window(all, limit, offset), len(all), nil
}

type ConfigRepository struct {
	s *Store
}

func (r *ConfigRepository) Get(_ context.Context, name string) (*domain.ConfigDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	doc, ok := r.s.configs[name]
	if !ok {
		return nil, nil
	}
	c := *doc
	c.Data = slices.Clone(doc.Data)
	return &c, nil
}

func (r *ConfigRepository) Put(_ context.Context, doc *domain.ConfigDocument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	doc.UpdatedAt = r.s.now()
	c := *doc
	c.Data = slices.Clone(doc.Data)
	r.s.configs[doc.Name] = &c
	return nil
}

type StatsRepository struct {
	s *Store
}

func (r *StatsRepository) Increment(_ context.Context, kind domain.StatKind) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.stats[kind]++
	return r.s.stats[kind], nil
}

func (r *StatsRepository) Counters(_ context.Context) (map[domain.StatKind]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[domain.StatKind]int64, len(r.s.stats))
	for k, v := range r.s.stats {
		out[k] = v
	}
	return out, nil
}

