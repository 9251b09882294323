package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merit-ol/mppms/internal/domain"
)

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO notifications (id, type, message, target_id, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, n.ID, n.Type, n.Message, n.TargetID, n.ActorID, n.CreatedAt)
	return wrap("create notification", err)
}

func (r *NotificationRepository) ListRecent(ctx context.Context, limit, offset int) ([]*domain.Notification, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	limit = clampLimit(limit)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM notifications`).Scan(&total); err != nil {
		return nil, 0, wrap("count notifications", err)
	}

	query := `
		SELECT id, type, message, target_id, actor_id, created_at
		FROM notifications
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, wrap("list notifications", err)
	}
	defer rows.Close()

	items := make([]*domain.Notification, 0, limit)
	for rows.Next() {
		n := &domain.Notification{}
		if err := rows.Scan(&n.ID, &n.Type, &n.Message, &n.TargetID, &n.ActorID, &n.CreatedAt); err != nil {
			return nil, 0, wrap("scan notification", err)
		}
		items = append(items, n)
	}
	return items, total, wrap("list notifications", rows.Err())
}
