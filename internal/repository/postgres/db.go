package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merit-ol/mppms/internal/domain"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	shortTimeout = 5 * time.Second
	listTimeout  = 10 * time.Second
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// wrap tags driver failures as backend unavailability. Nil and domain errors
// pass through unchanged.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{domain.ErrNotFound, domain.ErrDuplicateContent, domain.ErrValidation, domain.ErrForbidden} {
		if errors.Is(err, known) {
			return err
		}
	}
	return domain.Unavailable(op, err)
}

func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 200 {
		return 200
	}
	return limit
}

var (
	_ domain.PaperRepository        = (*PaperRepository)(nil)
	_ domain.UserRepository         = (*UserRepository)(nil)
	_ domain.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
	_ domain.NotificationRepository = (*NotificationRepository)(nil)
	_ domain.ConfigRepository       = (*ConfigRepository)(nil)
	_ domain.StatsRepository        = (*StatsRepository)(nil)
)
