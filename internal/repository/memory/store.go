// Package memory implements the repositories on process memory. It backs
// development runs (DATABASE_BACKEND=memory) and the usecase tests, and
// enforces the same uniqueness rules as the PostgreSQL schema.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/merit-ol/mppms/internal/domain"
)

// Store owns the lock shared by every repository so cross-table operations
// such as ownership transfer stay atomic.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	papers        map[uuid.UUID]*domain.Paper
	users         map[uuid.UUID]*domain.User
	tokens        map[string]*domain.RefreshToken
	notifications []*domain.Notification
	configs       map[string]*domain.ConfigDocument
	stats         map[domain.StatKind]int64
}

func NewStore() *Store {
	return &Store{
		now:     func() time.Time { return time.Now().UTC() },
		papers:  make(map[uuid.UUID]*domain.Paper),
		users:   make(map[uuid.UUID]*domain.User),
		tokens:  make(map[string]*domain.RefreshToken),
		configs: make(map[string]*domain.ConfigDocument),
		stats:   map[domain.StatKind]int64{domain.StatVisitors: 0, domain.StatDownloads: 0},
	}
}

// SetClock replaces the time source. Tests use it to control ordering.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Papers() *PaperRepository               { return &PaperRepository{s} }
func (s *Store) Users() *UserRepository                 { return &UserRepository{s} }
func (s *Store) Tokens() *RefreshTokenRepository        { return &RefreshTokenRepository{s} }
func (s *Store) Notifications() *NotificationRepository { return &NotificationRepository{s} }
func (s *Store) Configs() *ConfigRepository             { return &ConfigRepository{s} }
func (s *Store) Stats() *StatsRepository                { return &StatsRepository{s} }

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

var (
	_ domain.PaperRepository        = (*PaperRepository)(nil)
	_ domain.UserRepository         = (*UserRepository)(nil)
	_ domain.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
	_ domain.NotificationRepository = (*NotificationRepository)(nil)
	_ domain.ConfigRepository       = (*ConfigRepository)(nil)
	_ domain.StatsRepository        = (*StatsRepository)(nil)
)
