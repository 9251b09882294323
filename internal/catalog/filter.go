package catalog

import (
	"slices"
	"strconv"
	"strings"

	"github.com/merit-ol/mppms/internal/domain"
)

// Criteria is a PaperFilter with the year parsed and the search term folded.
type Criteria struct {
	domain.PaperFilter

	// YearValue is meaningful only when HasYear is set.
	YearValue int
	HasYear   bool
	// YearInvalid is set when a year was supplied but is not a number. Such
	// a filter matches nothing.
	YearInvalid bool
	Term        string
}

// Normalize parses f into Criteria.
func Normalize(f domain.PaperFilter) Criteria {
	c := Criteria{PaperFilter: f}
	if y := strings.TrimSpace(f.Year); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			c.YearInvalid = true
		} else {
			c.YearValue, c.HasYear = n, true
		}
	}
	c.Term = strings.ToLower(strings.TrimSpace(f.Search))
	return c
}

// Match reports whether p satisfies every supplied criterion.
func (c Criteria) Match(p *domain.Paper) bool {
	if c.YearInvalid {
		return false
	}

	want := domain.PaperActive
	if c.Scope == domain.ScopeDeleted {
		want = domain.PaperDeleted
	}
	if p.Status != want {
		return false
	}

	switch {
	case c.Subject != "" && p.Subject != c.Subject:
		return false
	case c.Category != "" && p.Category != c.Category:
		return false
	case c.Part != "" && p.Part != c.Part:
		return false
	case c.Language != "" && p.Language != c.Language:
		return false
	case c.HasYear && p.Year != c.YearValue:
		return false
	}

	if c.Term != "" && !slices.Contains(p.Keywords, c.Term) {
		return false
	}
	return true
}

// Filter returns the papers matching f, newest first. The input slice is
// left untouched.
func Filter(papers []*domain.Paper, f domain.PaperFilter) []*domain.Paper {
	c := Normalize(f)
	out := make([]*domain.Paper, 0, len(papers))
	for _, p := range papers {
		if c.Match(p) {
			out = append(out, p)
		}
	}
	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders papers by creation time descending, breaking ties
// by id so the order is total.
func SortNewestFirst(papers []*domain.Paper) {
	slices.SortStableFunc(papers, func(a, b *domain.Paper) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}
