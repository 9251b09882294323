package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merit-ol/mppms/internal/domain"
)

func TestFilters_DefaultAndUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)
	boss := f.signUp(t, ownerEmail)
	staff := f.signUp(t, "staff@example.com")

	v, err := f.site.Filters(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultFilters(), v)

	_, err = f.site.UpdateFilters(ctx, staff, v)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.site.UpdateFilters(ctx, boss, domain.FilterVocabulary{Categories: []string{"notes"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.site.UpdateFilters(ctx, boss, domain.FilterVocabulary{Years: []int{1900}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	saved, err := f.site.UpdateFilters(ctx, boss, domain.FilterVocabulary{
		Subjects:   []string{" Mathematics ", "Physics", "Physics", ""},
		Categories: []string{"paper", "scheme"},
		Years:      []int{2023, 2021, 2023},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mathematics", "Physics"}, saved.Subjects)
	assert.Equal(t, []string{"PAPER", "SCHEME"}, saved.Categories)
	assert.Equal(t, []int{2021, 2023}, saved.Years)

	got, err := f.site.Filters(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestConfigCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)
	boss := f.signUp(t, ownerEmail)

	_, err := f.site.UpdateSocials(ctx, boss, domain.Socials{Links: map[string]string{"GitHub": "https://github.com/mppms"}})
	require.NoError(t, err)

	first, err := f.site.Socials(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"github": "https://github.com/mppms"}, first.Links)

	// A write that bypasses the usecase is not seen until the entry is
	// invalidated.
	data, err := json.Marshal(domain.Socials{Links: map[string]string{"x": "https://x.com/mppms"}})
	require.NoError(t, err)
	require.NoError(t, f.store.Configs().Put(ctx, &domain.ConfigDocument{Name: domain.ConfigSocials, Data: data}))

	cached, err := f.site.Socials(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, cached)

	_, err = f.site.UpdateSocials(ctx, boss, domain.Socials{Links: map[string]string{"facebook": "https://facebook.com/mppms"}})
	require.NoError(t, err)
	fresh, err := f.site.Socials(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"facebook": "https://facebook.com/mppms"}, fresh.Links)

	_, err = f.site.UpdateSocials(ctx, boss, domain.Socials{Links: map[string]string{"bad": "javascript:alert(1)"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDonation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)
	boss := f.signUp(t, ownerEmail)

	v, err := f.site.Donation(ctx)
	require.NoError(t, err)
	assert.False(t, v.Enabled)

	_, err = f.site.UpdateDonation(ctx, boss, domain.DonationSettings{Enabled: true})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.site.UpdateDonation(ctx, boss, domain.DonationSettings{Currency: "rupees"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.site.UpdateDonation(ctx, boss, domain.DonationSettings{Amounts: []int{100, 0}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	saved, err := f.site.UpdateDonation(ctx, boss, domain.DonationSettings{
		Enabled:     true,
		Currency:    "lkr",
		Amounts:     []int{500, 1000},
		ProviderURL: " https://pay.example.com/mppms ",
	})
	require.NoError(t, err)
	assert.Equal(t, "LKR", saved.Currency)

	got, err := f.site.Donation(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)

	n, err := f.site.IncrementStat(ctx, domain.StatVisitors)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = f.site.IncrementStat(ctx, domain.StatVisitors)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = f.site.IncrementStat(ctx, domain.StatDownloads)
	assert.ErrorIs(t, err, domain.ErrValidation)

	stats, err := f.site.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{Visitors: 2}, stats)
}

func TestNotifications_AdminOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)
	staff := f.signUp(t, "staff@example.com")

	_, _, err := f.site.Notifications(ctx, staff, 10, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, _, err = f.site.Notifications(ctx, nil, 10, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
