package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PaperStatus string

const (
	PaperActive  PaperStatus = "active"
	PaperDeleted PaperStatus = "deleted"
)

// Paper categories form a closed vocabulary; the filters config can only
// narrow the set shown to users.
const (
	CategoryPaper   = "PAPER"
	CategoryScheme  = "SCHEME"
	CategoryMarking = "MARKING"
)

var PaperCategories = []string{CategoryPaper, CategoryScheme, CategoryMarking}

// MinYear is the oldest exam year accepted for a paper.
const MinYear = 1990

type Paper struct {
	ID          uuid.UUID   `json:"id"`
	Title       string      `json:"title"`
	Subject     string      `json:"subject"`
	Category    string      `json:"category"`
	Part        string      `json:"part,omitempty"`
	Language    string      `json:"language,omitempty"`
	Year        int         `json:"year"`
	FileKey     string      `json:"-"`
	FileURL     string      `json:"file_url"`
	FileSize    int64       `json:"file_size"`
	ContentHash string      `json:"content_hash,omitempty"`
	Keywords    []string    `json:"-"`
	AddedBy     uuid.UUID   `json:"added_by"`
	Status      PaperStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty"`
}

// PaperScope selects which side of the soft-delete flag a query sees.
type PaperScope int

const (
	ScopeActive PaperScope = iota
	ScopeDeleted
)

// PaperFilter holds the optional equality criteria and the search term used
// to narrow the catalogue. Empty fields impose no constraint.
type PaperFilter struct {
	Subject  string     `json:"subject,omitempty"`
	Year     string     `json:"year,omitempty"`
	Category string     `json:"category,omitempty"`
	Part     string     `json:"part,omitempty"`
	Language string     `json:"language,omitempty"`
	Search   string     `json:"q,omitempty"`
	Scope    PaperScope `json:"-"`
}

type PaperRepository interface {
	Create(ctx context.Context, paper *Paper) error
	GetByID(ctx context.Context, id uuid.UUID) (*Paper, error)
	// FindActiveByHash returns the active paper holding hash, or nil.
	FindActiveByHash(ctx context.Context, hash string) (*Paper, error)
	Update(ctx context.Context, paper *Paper) error
	SetStatus(ctx context.Context, id uuid.UUID, status PaperStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Search returns one window of the filtered, ordered catalogue and the
	// total number of matches.
	Search(ctx context.Context, filter PaperFilter, limit, offset int) ([]*Paper, int, error)
	CountContributors(ctx context.Context) (int, error)
}
