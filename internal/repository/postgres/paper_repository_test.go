package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merit-ol/mppms/internal/domain"
)

func TestBuildSearchWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    domain.PaperFilter
		startArg  int
		wantWhere string
		wantArgs  []any
	}{
		{
			name:      "empty filter sees active papers",
			startArg:  1,
			wantWhere: "WHERE status = $1",
			wantArgs:  []any{"active"},
		},
		{
			name:      "deleted scope",
			filter:    domain.PaperFilter{Scope: domain.ScopeDeleted},
			startArg:  1,
			wantWhere: "WHERE status = $1",
			wantArgs:  []any{"deleted"},
		},
		{
			name: "all criteria",
			filter: domain.PaperFilter{
				Subject:  "Mathematics",
				Category: "PAPER",
				Part:     "I",
				Language: "Sinhala",
				Year:     " 2019 ",
				Search:   "  PURE ",
			},
			startArg: 1,
			wantWhere: "WHERE status = $1 AND subject = $2 AND category = $3 AND part = $4" +
				" AND language = $5 AND year = $6 AND keywords @> ARRAY[$7]::text[]",
			wantArgs: []any{"active", "Mathematics", "PAPER", "I", "Sinhala", 2019, "pure"},
		},
		{
			name:      "start offset",
			filter:    domain.PaperFilter{Subject: "Physics"},
			startArg:  3,
			wantWhere: "WHERE status = $3 AND subject = $4",
			wantArgs:  []any{"active", "Physics"},
		},
		{
			name:      "non numeric year matches nothing",
			filter:    domain.PaperFilter{Year: "20x9", Subject: "Physics"},
			startArg:  1,
			wantWhere: "WHERE FALSE",
		},
		{
			name:      "blank search is ignored",
			filter:    domain.PaperFilter{Search: "   "},
			startArg:  1,
			wantWhere: "WHERE status = $1",
			wantArgs:  []any{"active"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildSearchWhere(tt.filter, tt.startArg)
			assert.Equal(t, tt.wantWhere, where)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, clampLimit(0))
	assert.Equal(t, 50, clampLimit(-3))
	assert.Equal(t, 20, clampLimit(20))
	assert.Equal(t, 200, clampLimit(1000))
}
