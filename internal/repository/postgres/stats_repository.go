package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merit-ol/mppms/internal/domain"
)

type StatsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) Increment(ctx context.Context, kind domain.StatKind) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	query := `
		INSERT INTO stats (kind, value) VALUES ($1, 1)
		ON CONFLICT (kind) DO UPDATE SET value = stats.value + 1
		RETURNING value
	`
	var v int64
	err := r.db.QueryRow(ctx, query, string(kind)).Scan(&v)
	return v, wrap("increment stat", err)
}

func (r *StatsRepository) Counters(ctx context.Context) (map[domain.StatKind]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `SELECT kind, value FROM stats`)
	if err != nil {
		return nil, wrap("read stats", err)
	}
	defer rows.Close()

	out := make(map[domain.StatKind]int64)
	for rows.Next() {
		var kind string
		var v int64
		if err := rows.Scan(&kind, &v); err != nil {
			return nil, wrap("scan stat", err)
		}
		out[domain.StatKind(kind)] = v
	}
	return out, wrap("read stats", rows.Err())
}
