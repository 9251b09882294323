package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/merit-ol/mppms/internal/catalog"
	"github.com/merit-ol/mppms/internal/domain"
)

type PaperRepository struct {
	s *Store
}

func clonePaper(p *domain.Paper) *domain.Paper {
	c := *p
	c.Keywords = slices.Clone(p.Keywords)
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

// activeHashOwner returns the id of the active paper holding hash, if any.
// Caller holds the lock.
func (r *PaperRepository) activeHashOwner(hash string) (uuid.UUID, bool) {
	for id, p := range r.s.papers {
		if p.Status == domain.PaperActive && p.ContentHash == hash {
			return id, true
		}
	}
	return uuid.Nil, false
}

func (r *PaperRepository) Create(_ context.Context, paper *domain.Paper) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	if paper.Status == "" {
		paper.Status = domain.PaperActive
	}
	if _, exists := r.s.papers[paper.ID]; exists {
		return domain.Invalid("id", "already exists")
	}
	if paper.Status == domain.PaperActive {
		if _, taken := r.activeHashOwner(paper.ContentHash); taken {
			return domain.ErrDuplicateContent
		}
	}
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = r.s.now()
	}
	paper.UpdatedAt = paper.CreatedAt
	catalog.Reindex(paper)

	r.s.papers[paper.ID] = clonePaper(paper)
	return nil
}

func (r *PaperRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Paper, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if p, ok := r.s.papers[id]; ok {
		return clonePaper(p), nil
	}
	return nil, nil
}

func (r *PaperRepository) FindActiveByHash(_ context.Context, hash string) (*domain.Paper, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if id, ok := r.activeHashOwner(hash); ok {
		return clonePaper(r.s.papers[id]), nil
	}
	return nil, nil
}

func (r *PaperRepository) Update(_ context.Context, paper *domain.Paper) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.papers[paper.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status == domain.PaperActive && paper.ContentHash != stored.ContentHash {
		if owner, taken := r.activeHashOwner(paper.ContentHash); taken && owner != paper.ID {
			return domain.ErrDuplicateContent
		}
	}

	catalog.Reindex(paper)
	paper.UpdatedAt = r.s.now()

	stored.Title = paper.Title
	stored.Subject = paper.Subject
	stored.Category = paper.Category
	stored.Part = paper.Part
	stored.Language = paper.Language
	stored.Year = paper.Year
	stored.Keywords = slices.Clone(paper.Keywords)
	stored.FileKey = paper.FileKey
	stored.FileURL = paper.FileURL
	stored.FileSize = paper.FileSize
	stored.ContentHash = paper.ContentHash
	stored.UpdatedAt = paper.UpdatedAt
	return nil
}

func (r *PaperRepository) SetStatus(_ context.Context, id uuid.UUID, status domain.PaperStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.papers[id]
	if !ok {
		return domain.ErrNotFound
	}
	if status == domain.PaperActive {
		if owner, taken := r.activeHashOwner(stored.ContentHash); taken && owner != id {
			return domain.ErrDuplicateContent
		}
	}

	now := r.s.now()
	stored.Status = status
	stored.UpdatedAt = now
	if status == domain.PaperDeleted {
		stored.DeletedAt = &now
	} else {
		stored.DeletedAt = nil
	}
	return nil
}

func (r *PaperRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.papers[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.papers, id)
	return nil
}

func (r *PaperRepository) Search(_ context.Context, filter domain.PaperFilter, limit, offset int) ([]*domain.Paper, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]*domain.Paper, 0, len(r.s.papers))
	for _, p := range r.s.papers {
		all = append(all, p)
	}
	matched := catalog.Filter(all, filter)

	page := window(matched, limit, offset)
	out := make([]*domain.Paper, len(page))
	for i, p := range page {
		out[i] = clonePaper(p)
	}
	return out, len(matched), nil
}

func (r *PaperRepository) CountContributors(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	for _, p := range r.s.papers {
		if p.Status == domain.PaperActive {
			seen[p.AddedBy] = struct{}{}
		}
	}
	return len(seen), nil
}

// ListAll calls fn for every paper regardless of status, oldest first.
func (r *PaperRepository) ListAll(_ context.Context, fn func(*domain.Paper) error) error {
	r.s.mu.RLock()
	all := make([]*domain.Paper, 0, len(r.s.papers))
	for _, p := range r.s.papers {
		all = append(all, clonePaper(p))
	}
	r.s.mu.RUnlock()

	catalog.SortNewestFirst(all)
	slices.Reverse(all)
	for _, p := range all {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *PaperRepository) SetKeywords(_ context.Context, id uuid.UUID, keywords []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.papers[id]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Keywords = slices.Clone(keywords)
	return nil
}
