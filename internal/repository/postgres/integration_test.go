package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/merit-ol/mppms/internal/database"
	"github.com/merit-ol/mppms/internal/domain"
)

// setupPool starts PostgreSQL in a container and applies the migrations.
// Set TEST_INTEGRATION to run.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("skipping integration test: TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("mppms_test"),
		tcpostgres.WithUsername("mppms"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	_, err = database.Migrate(url, zerolog.Nop())
	require.NoError(t, err)

	pool, err := database.Connect(ctx, url, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedUser(t *testing.T, repo *UserRepository, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Name: email}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestIntegration_Papers(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	papers := NewPaperRepository(pool)

	owner := seedUser(t, users, "staff@example.com")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mk := func(t *testing.T, title, subject string, year int, hash string, age time.Duration) *domain.Paper {
		p := &domain.Paper{
			Title: title, Subject: subject, Category: domain.CategoryPaper, Year: year,
			FileKey: "papers/" + hash + ".pdf", ContentHash: hash, AddedBy: owner.ID,
			CreatedAt: base.Add(-age),
		}
		require.NoError(t, papers.Create(ctx, p))
		return p
	}

	maths := mk(t, "Pure Maths", "Mathematics", 2019, "h1", 0)
	physics := mk(t, "Physics Paper", "Physics", 2020, "h2", time.Hour)
	_ = mk(t, "Applied Maths", "Mathematics", 2018, "h3", 2*time.Hour)

	t.Run("duplicate active hash rejected", func(t *testing.T) {
		dup := &domain.Paper{
			Title: "Copy", Subject: "Physics", Category: domain.CategoryPaper, Year: 2020,
			FileKey: "papers/copy.pdf", ContentHash: "h2", AddedBy: owner.ID,
		}
		assert.ErrorIs(t, papers.Create(ctx, dup), domain.ErrDuplicateContent)
	})

	t.Run("found by hash", func(t *testing.T) {
		got, err := papers.FindActiveByHash(ctx, "h1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, maths.ID, got.ID)
		assert.Contains(t, got.Keywords, "pure")
	})

	t.Run("search keyword and pagination", func(t *testing.T) {
		items, total, err := papers.Search(ctx, domain.PaperFilter{Search: "MATH"}, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, items, 1)
		assert.Equal(t, maths.ID, items[0].ID)

		items, _, err = papers.Search(ctx, domain.PaperFilter{Search: "math"}, 1, 1)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Applied Maths", items[0].Title)
	})

	t.Run("invalid year matches nothing", func(t *testing.T) {
		items, total, err := papers.Search(ctx, domain.PaperFilter{Year: "abc"}, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, items)
	})

	t.Run("soft delete frees the hash", func(t *testing.T) {
		require.NoError(t, papers.SetStatus(ctx, physics.ID, domain.PaperDeleted))

		got, err := papers.GetByID(ctx, physics.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaperDeleted, got.Status)
		assert.NotNil(t, got.DeletedAt)

		deleted, total, err := papers.Search(ctx, domain.PaperFilter{Scope: domain.ScopeDeleted}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, physics.ID, deleted[0].ID)

		again := mk(t, "Physics Again", "Physics", 2020, "h2", 0)
		assert.ErrorIs(t, papers.SetStatus(ctx, physics.ID, domain.PaperActive), domain.ErrDuplicateContent)

		require.NoError(t, papers.Delete(ctx, again.ID))
		require.NoError(t, papers.SetStatus(ctx, physics.ID, domain.PaperActive))
	})

	t.Run("update reindexes", func(t *testing.T) {
		maths.Title = "Combined Maths"
		require.NoError(t, papers.Update(ctx, maths))

		items, _, err := papers.Search(ctx, domain.PaperFilter{Search: "combined"}, 10, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, maths.ID, items[0].ID)
	})

	t.Run("missing paper", func(t *testing.T) {
		got, err := papers.GetByID(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.ErrorIs(t, papers.SetStatus(ctx, uuid.New(), domain.PaperDeleted), domain.ErrNotFound)
		assert.ErrorIs(t, papers.SetKeywords(ctx, uuid.New(), []string{"x"}), domain.ErrNotFound)
	})

	n, err := papers.CountContributors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestIntegration_Users(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)

	a := seedUser(t, users, "a@example.com")
	b := seedUser(t, users, "b@example.com")
	assert.Equal(t, domain.RoleStaff, a.Role)

	assert.ErrorIs(t, users.Create(ctx, &domain.User{Email: "a@example.com"}), domain.ErrValidation)

	ok, err := users.PromoteOwner(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = users.PromoteOwner(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, users.TransferOwnership(ctx, a.ID, b.ID))
	gotA, err := users.GetByID(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := users.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, gotA.Role)
	assert.Equal(t, domain.RoleSuperAdmin, gotB.Role)

	assert.ErrorIs(t, users.TransferOwnership(ctx, a.ID, b.ID), domain.ErrForbidden)

	require.NoError(t, users.SetBlocked(ctx, a.ID, true))
	gotA, err = users.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, gotA.Blocked)

	list, total, err := users.ListAll(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 2)
}

func TestIntegration_RefreshTokens(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	users := NewUserRepository(pool)
	tokens := NewRefreshTokenRepository(pool)

	u := seedUser(t, users, "staff@example.com")
	require.NoError(t, tokens.Create(ctx, &domain.RefreshToken{UserID: u.ID, TokenHash: "live", ExpiresAt: time.Now().Add(time.Hour)}))
	require.NoError(t, tokens.Create(ctx, &domain.RefreshToken{UserID: u.ID, TokenHash: "dead", ExpiresAt: time.Now().Add(-time.Hour)}))

	tok, err := tokens.GetByTokenHash(ctx, "dead")
	require.NoError(t, err)
	require.NotNil(t, tok, "expired tokens are returned for the caller to judge")
	assert.True(t, tok.ExpiresAt.Before(time.Now()))

	require.NoError(t, tokens.DeleteExpired(ctx))
	tok, err = tokens.GetByTokenHash(ctx, "dead")
	require.NoError(t, err)
	assert.Nil(t, tok)
	tok, err = tokens.GetByTokenHash(ctx, "live")
	require.NoError(t, err)
	assert.NotNil(t, tok)
}

func TestIntegration_SiteTables(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()

	configs := NewConfigRepository(pool)
	doc, err := configs.Get(ctx, domain.ConfigSocials)
	require.NoError(t, err)
	assert.Nil(t, doc)

	require.NoError(t, configs.Put(ctx, &domain.ConfigDocument{
		Name: domain.ConfigSocials,
		Data: json.RawMessage(`{"links":{"facebook":"https://fb.example"}}`),
	}))
	doc, err = configs.Get(ctx, domain.ConfigSocials)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.JSONEq(t, `{"links":{"facebook":"https://fb.example"}}`, string(doc.Data))

	stats := NewStatsRepository(pool)
	v, err := stats.Increment(ctx, domain.StatVisitors)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	counters, err := stats.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters[domain.StatVisitors])
	assert.Equal(t, int64(0), counters[domain.StatDownloads])

	notes := NewNotificationRepository(pool)
	target := uuid.New()
	require.NoError(t, notes.Create(ctx, &domain.Notification{
		Type: domain.NotifyPaperCreated, Message: "added", TargetID: &target,
	}))
	items, total, err := notes.ListRecent(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, target, *items[0].TargetID)
	assert.Nil(t, items[0].ActorID)
}
