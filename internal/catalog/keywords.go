// Package catalog holds the pure catalogue logic: keyword derivation,
// filtering, pagination and content fingerprints. Nothing here performs I/O
// beyond reading the bytes it is handed.
package catalog

import (
	"slices"
	"strconv"
	"strings"

	"github.com/merit-ol/mppms/internal/domain"
)

// Keywords returns every non-empty prefix of the lowercased title, subject
// and year. The result is sorted and free of duplicates.
func Keywords(title, subject string, year int) []string {
	set := make(map[string]struct{})
	for _, field := range []string{title, subject, strconv.Itoa(year)} {
		addPrefixes(set, strings.ToLower(field))
	}

	keywords := make([]string, 0, len(set))
	for k := range set {
		keywords = append(keywords, k)
	}
	slices.Sort(keywords)
	return keywords
}

func addPrefixes(set map[string]struct{}, s string) {
	// Cut on rune boundaries so multi-byte scripts yield valid prefixes.
	for i := range s {
		if i > 0 {
			set[s[:i]] = struct{}{}
		}
	}
	if s != "" {
		set[s] = struct{}{}
	}
}

// Reindex replaces the paper's keyword set with a fresh derivation.
func Reindex(p *domain.Paper) {
	p.Keywords = Keywords(p.Title, p.Subject, p.Year)
}

// Stale reports whether the stored keywords differ from a fresh derivation.
func Stale(p *domain.Paper) bool {
	stored := slices.Clone(p.Keywords)
	slices.Sort(stored)
	stored = slices.Compact(stored)
	return !slices.Equal(stored, Keywords(p.Title, p.Subject, p.Year))
}
