package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merit-ol/mppms/internal/domain"
)

// ConfigRepository stores the singleton site documents as JSONB rows keyed
// by name.
type ConfigRepository struct {
	db *pgxpool.Pool
}

func NewConfigRepository(db *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{db: db}
}

func (r *ConfigRepository) Get(ctx context.Context, name string) (*domain.ConfigDocument, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	doc := &domain.ConfigDocument{Name: name}
	err := r.db.QueryRow(ctx,
		`SELECT data, updated_by, updated_at FROM configs WHERE name = $1`, name,
	).Scan(&doc.Data, &doc.UpdatedBy, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get config", err)
	}
	return doc, nil
}

func (r *ConfigRepository) Put(ctx context.Context, doc *domain.ConfigDocument) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	doc.UpdatedAt = time.Now().UTC()
	query := `
		INSERT INTO configs (name, data, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			data = EXCLUDED.data,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query, doc.Name, []byte(doc.Data), doc.UpdatedBy, doc.UpdatedAt)
	return wrap("put config", err)
}
