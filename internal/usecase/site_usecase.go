package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/metrics"
	"github.com/merit-ol/mppms/internal/session"
)

// SiteUsecase serves the singleton config documents, the public counters
// and the activity feed.
type SiteUsecase struct {
	configs domain.ConfigRepository
	stats   domain.StatsRepository
	papers  domain.PaperRepository
	notes   domain.NotificationRepository
	cache   *expirable.LRU[string, json.RawMessage]
	log     zerolog.Logger
}

func NewSiteUsecase(
	configs domain.ConfigRepository,
	stats domain.StatsRepository,
	papers domain.PaperRepository,
	notes domain.NotificationRepository,
	cacheSize int,
	cacheTTL time.Duration,
	log zerolog.Logger,
) *SiteUsecase {
	return &SiteUsecase{
		configs: configs,
		stats:   stats,
		papers:  papers,
		notes:   notes,
		cache:   expirable.NewLRU[string, json.RawMessage](cacheSize, nil, cacheTTL),
		log:     log.With().Str("component", "site").Logger(),
	}
}

// DefaultFilters is served until a super-admin saves a vocabulary.
func DefaultFilters() domain.FilterVocabulary {
	return domain.FilterVocabulary{
		Subjects:   []string{},
		Categories: slices.Clone(domain.PaperCategories),
		Parts:      []string{},
		Languages:  []string{},
		Years:      []int{},
	}
}

func (u *SiteUsecase) load(ctx context.Context, name string, out any) error {
	raw, ok := u.cache.Get(name)
	if ok {
		metrics.ConfigCacheHits.Inc()
	} else {
		metrics.ConfigCacheMisses.Inc()
		doc, err := u.configs.Get(ctx, name)
		if err != nil {
			return err
		}
		if doc == nil {
			return nil
		}
		raw = doc.Data
		u.cache.Add(name, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s config: %w", name, err)
	}
	return nil
}

func (u *SiteUsecase) save(ctx context.Context, s *session.Session, name string, v any) error {
	if !s.Can(domain.RoleSuperAdmin) {
		return domain.ErrForbidden
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	by := s.UserID()
	if err := u.configs.Put(ctx, &domain.ConfigDocument{Name: name, Data: data, UpdatedBy: &by}); err != nil {
		return err
	}
	u.cache.Remove(name)
	u.log.Info().Str("config", name).Str("by", by.String()).Msg("config updated")
	return nil
}

func (u *SiteUsecase) Filters(ctx context.Context) (domain.FilterVocabulary, error) {
	v := DefaultFilters()
	if err := u.load(ctx, domain.ConfigFilters, &v); err != nil {
		return domain.FilterVocabulary{}, err
	}
	return v, nil
}

// UpdateFilters replaces the vocabulary. Categories may only narrow the
// fixed set.
func (u *SiteUsecase) UpdateFilters(ctx context.Context, s *session.Session, v domain.FilterVocabulary) (domain.FilterVocabulary, error) {
	v.Subjects = cleanList(v.Subjects)
	v.Parts = cleanList(v.Parts)
	v.Languages = cleanList(v.Languages)
	v.Categories = cleanList(v.Categories)
	for i, c := range v.Categories {
		v.Categories[i] = strings.ToUpper(c)
		if !isCategory(v.Categories[i]) {
			return domain.FilterVocabulary{}, domain.Invalid("categories", fmt.Sprintf("unknown category %q", c))
		}
	}
	if len(v.Categories) == 0 {
		v.Categories = slices.Clone(domain.PaperCategories)
	}
	if v.Years == nil {
		v.Years = []int{}
	}
	for _, y := range v.Years {
		if y < domain.MinYear {
			return domain.FilterVocabulary{}, domain.Invalid("years", fmt.Sprintf("%d is before %d", y, domain.MinYear))
		}
	}
	slices.Sort(v.Years)
	v.Years = slices.Compact(v.Years)

	if err := u.save(ctx, s, domain.ConfigFilters, v); err != nil {
		return domain.FilterVocabulary{}, err
	}
	return v, nil
}

func (u *SiteUsecase) Socials(ctx context.Context) (domain.Socials, error) {
	v := domain.Socials{Links: map[string]string{}}
	if err := u.load(ctx, domain.ConfigSocials, &v); err != nil {
		return domain.Socials{}, err
	}
	return v, nil
}

func (u *SiteUsecase) UpdateSocials(ctx context.Context, s *session.Session, v domain.Socials) (domain.Socials, error) {
	links := make(map[string]string, len(v.Links))
	for name, link := range v.Links {
		name, link = strings.ToLower(strings.TrimSpace(name)), strings.TrimSpace(link)
		if name == "" || link == "" {
			continue
		}
		if !isHTTPURL(link) {
			return domain.Socials{}, domain.Invalid("links."+name, "must be an http(s) URL")
		}
		links[name] = link
	}
	v.Links = links
	if err := u.save(ctx, s, domain.ConfigSocials, v); err != nil {
		return domain.Socials{}, err
	}
	return v, nil
}

func (u *SiteUsecase) Donation(ctx context.Context) (domain.DonationSettings, error) {
	var v domain.DonationSettings
	if err := u.load(ctx, domain.ConfigDonation, &v); err != nil {
		return domain.DonationSettings{}, err
	}
	return v, nil
}

func (u *SiteUsecase) UpdateDonation(ctx context.Context, s *session.Session, v domain.DonationSettings) (domain.DonationSettings, error) {
	v.Currency = strings.ToUpper(strings.TrimSpace(v.Currency))
	v.ProviderURL = strings.TrimSpace(v.ProviderURL)
	if v.Enabled && !isHTTPURL(v.ProviderURL) {
		return domain.DonationSettings{}, domain.Invalid("provider_url", "must be an http(s) URL when donations are enabled")
	}
	if v.Currency != "" && len(v.Currency) != 3 {
		return domain.DonationSettings{}, domain.Invalid("currency", "must be a three letter code")
	}
	for _, a := range v.Amounts {
		if a <= 0 {
			return domain.DonationSettings{}, domain.Invalid("amounts", "must be positive")
		}
	}
	if err := u.save(ctx, s, domain.ConfigDonation, v); err != nil {
		return domain.DonationSettings{}, err
	}
	return v, nil
}

// IncrementStat bumps a public counter. Downloads are only counted by the
// download route, so only visitors can be incremented directly.
func (u *SiteUsecase) IncrementStat(ctx context.Context, kind domain.StatKind) (int64, error) {
	if kind != domain.StatVisitors {
		return 0, domain.Invalid("kind", fmt.Sprintf("%s cannot be incremented directly", kind))
	}
	return u.stats.Increment(ctx, kind)
}

func (u *SiteUsecase) Stats(ctx context.Context) (domain.Stats, error) {
	counters, err := u.stats.Counters(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	contributors, err := u.papers.CountContributors(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{
		Visitors:     counters[domain.StatVisitors],
		Downloads:    counters[domain.StatDownloads],
		Contributors: contributors,
	}, nil
}

func (u *SiteUsecase) Notifications(ctx context.Context, s *session.Session, limit, offset int) ([]*domain.Notification, int, error) {
	if !s.Can(domain.RoleAdmin) {
		return nil, 0, domain.ErrForbidden
	}
	return u.notes.ListRecent(ctx, limit, offset)
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
