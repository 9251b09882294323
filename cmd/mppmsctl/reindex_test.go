package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merit-ol/mppms/internal/catalog"
	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/repository/memory"
)

func TestReindex(t *testing.T) {
	logger = zerolog.Nop()
	ctx := context.Background()
	store := memory.NewStore()
	papers := store.Papers()

	var ids []uuid.UUID
	for i, title := range []string{"Mathematics", "Physics", "Chemistry"} {
		p := &domain.Paper{
			Title:       title,
			Subject:     "Science",
			Category:    domain.CategoryPaper,
			Year:        2020 + i,
			ContentHash: title,
			CreatedAt:   time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, papers.Create(ctx, p))
		ids = append(ids, p.ID)
	}
	require.NoError(t, papers.SetKeywords(ctx, ids[1], []string{"outdated"}))

	scanned, fixed, err := reindex(ctx, papers, true)
	require.NoError(t, err)
	assert.Equal(t, 3, scanned)
	assert.Equal(t, 1, fixed)

	stale, err := papers.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"outdated"}, stale.Keywords, "dry run writes nothing")

	_, fixed, err = reindex(ctx, papers, false)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	got, err := papers.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.False(t, catalog.Stale(got))
	assert.Contains(t, got.Keywords, "phys")

	_, fixed, err = reindex(ctx, papers, false)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}
