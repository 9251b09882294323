package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	NotifyPaperCreated         = "paper_created"
	NotifyPaperDeleted         = "paper_deleted"
	NotifyPaperRestored        = "paper_restored"
	NotifyPaperPurged          = "paper_purged"
	NotifyOwnershipTransferred = "ownership_transferred"
)

// Notification is an append-only activity log entry.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	TargetID  *uuid.UUID `json:"target_id,omitempty"`
	ActorID   *uuid.UUID `json:"actor_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListRecent(ctx context.Context, limit, offset int) ([]*Notification, int, error)
}
