// Package repository selects the storage backend named in the configuration
// and hands out its repositories.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/merit-ol/mppms/internal/config"
	"github.com/merit-ol/mppms/internal/database"
	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/repository/memory"
	"github.com/merit-ol/mppms/internal/repository/postgres"
)

// Reindexer walks every stored paper and rewrites its keyword index.
type Reindexer interface {
	ListAll(ctx context.Context, fn func(*domain.Paper) error) error
	SetKeywords(ctx context.Context, id uuid.UUID, keywords []string) error
}

// Set groups the repositories of one backend.
type Set struct {
	Papers        domain.PaperRepository
	Users         domain.UserRepository
	Tokens        domain.RefreshTokenRepository
	Notifications domain.NotificationRepository
	Configs       domain.ConfigRepository
	Stats         domain.StatsRepository
	Reindexer     Reindexer

	// Ready is nil for the memory backend.
	Ready *database.ReadinessChecker
	pool  *pgxpool.Pool
}

// Open connects to the configured backend. With PostgreSQL the schema is
// migrated once the database answers, when cfg.MigrateOnStart is set.
func Open(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*Set, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		log.Warn().Msg("using the in-memory backend; data is lost on restart")
		store := memory.NewStore()
		papers := store.Papers()
		return &Set{
			Papers:        papers,
			Users:         store.Users(),
			Tokens:        store.Tokens(),
			Notifications: store.Notifications(),
			Configs:       store.Configs(),
			Stats:         store.Stats(),
			Reindexer:     papers,
		}, nil

	case config.BackendPostgres:
		pool, err := database.Connect(ctx, cfg.URL, log)
		if err != nil {
			return nil, err
		}
		if cfg.MigrateOnStart {
			if _, err := database.Migrate(cfg.URL, log); err != nil {
				pool.Close()
				return nil, err
			}
		}
		papers := postgres.NewPaperRepository(pool)
		return &Set{
			Papers:        papers,
			Users:         postgres.NewUserRepository(pool),
			Tokens:        postgres.NewRefreshTokenRepository(pool),
			Notifications: postgres.NewNotificationRepository(pool),
			Configs:       postgres.NewConfigRepository(pool),
			Stats:         postgres.NewStatsRepository(pool),
			Reindexer:     papers,
			Ready:         database.NewReadinessChecker(pool),
			pool:          pool,
		}, nil
	}
	return nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
}

func (s *Set) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
