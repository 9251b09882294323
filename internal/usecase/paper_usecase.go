package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/merit-ol/mppms/internal/catalog"
	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/metrics"
	"github.com/merit-ol/mppms/internal/session"
	"github.com/merit-ol/mppms/pkg/objectstore"
)

// maxPage bounds requested page numbers before offsets are computed.
const maxPage = 1 << 20

// DownloadPath is the stable address stored as a paper's file URL. Object
// storage URLs may be short-lived, so clients always go through it.
func DownloadPath(id uuid.UUID) string {
	return "/api/v1/papers/" + id.String() + "/download"
}

type PaperUsecase struct {
	papers   domain.PaperRepository
	notes    domain.NotificationRepository
	stats    domain.StatsRepository
	store    objectstore.Store
	pageSize int
	maxBytes int64
	log      zerolog.Logger
	now      func() time.Time
}

func NewPaperUsecase(
	papers domain.PaperRepository,
	notes domain.NotificationRepository,
	stats domain.StatsRepository,
	store objectstore.Store,
	pageSize int,
	maxBytes int64,
	log zerolog.Logger,
) *PaperUsecase {
	return &PaperUsecase{
		papers:   papers,
		notes:    notes,
		stats:    stats,
		store:    store,
		pageSize: pageSize,
		maxBytes: maxBytes,
		log:      log.With().Str("component", "papers").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PaperInput is the editable metadata of a paper.
type PaperInput struct {
	Title    string
	Subject  string
	Category string
	Part     string
	Language string
	Year     int
}

func (in *PaperInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Category = strings.ToUpper(strings.TrimSpace(in.Category))
	in.Part = strings.TrimSpace(in.Part)
	in.Language = strings.TrimSpace(in.Language)
}

func (in PaperInput) validate(now time.Time) error {
	switch {
	case in.Title == "":
		return domain.Invalid("title", "is required")
	case in.Subject == "":
		return domain.Invalid("subject", "is required")
	case !isCategory(in.Category):
		return domain.Invalid("category", fmt.Sprintf("must be one of %s", strings.Join(domain.PaperCategories, ", ")))
	case in.Year < domain.MinYear || in.Year > now.Year()+1:
		return domain.Invalid("year", fmt.Sprintf("must be between %d and %d", domain.MinYear, now.Year()+1))
	}
	return nil
}

func isCategory(c string) bool {
	for _, known := range domain.PaperCategories {
		if c == known {
			return true
		}
	}
	return false
}

// upload is a fully read, fingerprinted candidate file.
type upload struct {
	data []byte
	hash string
}

// readUpload buffers at most maxBytes of r, checks the PDF header and
// fingerprints the content.
func (u *PaperUsecase) readUpload(r io.Reader) (*upload, error) {
	if r == nil {
		return nil, domain.Invalid("file", "is required")
	}
	data, err := io.ReadAll(io.LimitReader(r, u.maxBytes+1))
	if err != nil {
		return nil, domain.Invalid("file", "could not be read")
	}
	switch {
	case len(data) == 0:
		return nil, domain.Invalid("file", "is empty")
	case int64(len(data)) > u.maxBytes:
		return nil, domain.Invalid("file", fmt.Sprintf("exceeds %d bytes", u.maxBytes))
	case !catalog.LooksLikePDF(data):
		return nil, domain.Invalid("file", "must be a PDF document")
	}

	hash, _, err := catalog.Fingerprint(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &upload{data: data, hash: hash}, nil
}

// List returns one page of the catalogue. Out-of-range pages are clamped.
func (u *PaperUsecase) List(ctx context.Context, filter domain.PaperFilter, page int) (catalog.Page[*domain.Paper], error) {
	page = min(max(page, 1), maxPage)
	offset := (page - 1) * u.pageSize

	items, total, err := u.papers.Search(ctx, filter, u.pageSize, offset)
	if err != nil {
		return catalog.Page[*domain.Paper]{}, err
	}

	b := catalog.Window(total, u.pageSize, page)
	if total > 0 && b.Offset != offset {
		// Requested page was past the end; fetch the last one instead.
		items, total, err = u.papers.Search(ctx, filter, b.Limit, b.Offset)
		if err != nil {
			return catalog.Page[*domain.Paper]{}, err
		}
		b = catalog.Window(total, u.pageSize, page)
	}
	metrics.SearchResults.Observe(float64(total))

	if items == nil {
		items = []*domain.Paper{}
	}
	return catalog.Page[*domain.Paper]{
		Items:      items,
		Number:     b.Number,
		Size:       b.Limit,
		Total:      total,
		TotalPages: b.TotalPages,
	}, nil
}

// Get returns an active paper. Admins may also read deleted ones.
func (u *PaperUsecase) Get(ctx context.Context, s *session.Session, id uuid.UUID) (*domain.Paper, error) {
	p, err := u.papers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || (p.Status != domain.PaperActive && !s.Can(domain.RoleAdmin)) {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (u *PaperUsecase) Create(ctx context.Context, s *session.Session, in PaperInput, file io.Reader) (*domain.Paper, error) {
	if !s.Can(domain.RoleStaff) {
		return nil, domain.ErrForbidden
	}
	in.normalize()
	if err := in.validate(u.now()); err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}
	up, err := u.readUpload(file)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	existing, err := u.papers.FindActiveByHash(ctx, up.hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return nil, domain.ErrDuplicateContent
	}

	now := u.now()
	p := &domain.Paper{
		ID:          uuid.New(),
		Title:       in.Title,
		Subject:     in.Subject,
		Category:    in.Category,
		Part:        in.Part,
		Language:    in.Language,
		Year:        in.Year,
		FileSize:    int64(len(up.data)),
		ContentHash: up.hash,
		AddedBy:     s.UserID(),
		Status:      domain.PaperActive,
		CreatedAt:   now,
	}
	p.FileKey = objectstore.PaperKey(now, p.ID)
	p.FileURL = DownloadPath(p.ID)

	if err := u.store.Put(ctx, p.FileKey, bytes.NewReader(up.data), p.FileSize, "application/pdf"); err != nil {
		metrics.UploadsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, domain.Unavailable("store paper file", err)
	}

	if err := u.papers.Create(ctx, p); err != nil {
		u.discardObject(p.FileKey)
		outcome := metrics.OutcomeFailed
		if errors.Is(err, domain.ErrDuplicateContent) {
			outcome = metrics.OutcomeDuplicate
		}
		metrics.UploadsTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}
	metrics.UploadsTotal.WithLabelValues(metrics.OutcomeCreated).Inc()

	u.notify(ctx, s, domain.NotifyPaperCreated, p, fmt.Sprintf("%s added %q", actorName(s), p.Title))
	u.log.Info().Str("paper_id", p.ID.String()).Str("user_id", s.UserID().String()).Msg("paper created")
	return p, nil
}

// Update edits metadata and, when file is non-nil, replaces the file.
func (u *PaperUsecase) Update(ctx context.Context, s *session.Session, id uuid.UUID, in PaperInput, file io.Reader) (*domain.Paper, error) {
	p, err := u.loadEditable(ctx, s, id)
	if err != nil {
		return nil, err
	}
	in.normalize()
	if err := in.validate(u.now()); err != nil {
		return nil, err
	}

	var oldKey string
	if file != nil {
		up, err := u.readUpload(file)
		if err != nil {
			return nil, err
		}

		existing, err := u.papers.FindActiveByHash(ctx, up.hash)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != p.ID {
			metrics.UploadsTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
			return nil, domain.ErrDuplicateContent
		}

		if up.hash != p.ContentHash {
			newKey := objectstore.PaperKey(u.now(), uuid.New())
			if err := u.store.Put(ctx, newKey, bytes.NewReader(up.data), int64(len(up.data)), "application/pdf"); err != nil {
				return nil, domain.Unavailable("store paper file", err)
			}
			oldKey = p.FileKey
			p.FileKey = newKey
			p.FileSize = int64(len(up.data))
			p.ContentHash = up.hash
		}
	}

	p.Title = in.Title
	p.Subject = in.Subject
	p.Category = in.Category
	p.Part = in.Part
	p.Language = in.Language
	p.Year = in.Year

	if err := u.papers.Update(ctx, p); err != nil {
		if oldKey != "" {
			u.discardObject(p.FileKey)
		}
		return nil, err
	}
	if oldKey != "" {
		u.discardObject(oldKey)
	}
	return p, nil
}

// Delete moves an active paper to the recycle bin.
func (u *PaperUsecase) Delete(ctx context.Context, s *session.Session, id uuid.UUID) error {
	p, err := u.loadEditable(ctx, s, id)
	if err != nil {
		return err
	}
	if err := u.papers.SetStatus(ctx, p.ID, domain.PaperDeleted); err != nil {
		return err
	}
	u.notify(ctx, s, domain.NotifyPaperDeleted, p, fmt.Sprintf("%s deleted %q", actorName(s), p.Title))
	return nil
}

// Restore brings a paper back from the recycle bin. It fails with
// ErrDuplicateContent when another active paper now holds the same file.
func (u *PaperUsecase) Restore(ctx context.Context, s *session.Session, id uuid.UUID) (*domain.Paper, error) {
	if !s.Can(domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	p, err := u.papers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Status != domain.PaperDeleted {
		return nil, domain.ErrNotFound
	}

	if err := u.papers.SetStatus(ctx, p.ID, domain.PaperActive); err != nil {
		return nil, err
	}
	p.Status = domain.PaperActive
	p.DeletedAt = nil

	u.notify(ctx, s, domain.NotifyPaperRestored, p, fmt.Sprintf("%s restored %q", actorName(s), p.Title))
	return p, nil
}

// Purge removes the record and its stored file for good.
func (u *PaperUsecase) Purge(ctx context.Context, s *session.Session, id uuid.UUID) error {
	if !s.Can(domain.RoleSuperAdmin) {
		return domain.ErrForbidden
	}
	p, err := u.papers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.ErrNotFound
	}

	if err := u.papers.Delete(ctx, p.ID); err != nil {
		return err
	}
	u.discardObject(p.FileKey)

	u.notify(ctx, s, domain.NotifyPaperPurged, p, fmt.Sprintf("%s permanently removed %q", actorName(s), p.Title))
	return nil
}

// Download resolves the object URL of an active paper and counts the
// download.
func (u *PaperUsecase) Download(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := u.papers.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if p == nil || p.Status != domain.PaperActive {
		return "", domain.ErrNotFound
	}

	url, err := u.store.URL(ctx, p.FileKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return "", domain.ErrNotFound
		}
		return "", domain.Unavailable("resolve paper file", err)
	}

	if _, err := u.stats.Increment(ctx, domain.StatDownloads); err != nil {
		u.log.Warn().Err(err).Msg("count download")
	}
	metrics.DownloadsTotal.Inc()
	return url, nil
}

// loadEditable fetches an active paper the session may modify: its uploader
// or any admin.
func (u *PaperUsecase) loadEditable(ctx context.Context, s *session.Session, id uuid.UUID) (*domain.Paper, error) {
	if !s.Can(domain.RoleStaff) {
		return nil, domain.ErrForbidden
	}
	p, err := u.papers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Status != domain.PaperActive {
		return nil, domain.ErrNotFound
	}
	if !s.Owns(p) && !s.Can(domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

// discardObject removes a stored file outside the request's lifetime so a
// cancelled request still cleans up.
func (u *PaperUsecase) discardObject(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := u.store.Delete(ctx, key); err != nil {
		u.log.Error().Err(err).Str("key", key).Msg("orphaned paper file")
	}
}

func (u *PaperUsecase) notify(ctx context.Context, s *session.Session, kind string, p *domain.Paper, msg string) {
	target := p.ID
	n := &domain.Notification{Type: kind, Message: msg, TargetID: &target}
	if id := s.UserID(); id != uuid.Nil {
		n.ActorID = &id
	}
	if err := u.notes.Create(ctx, n); err != nil {
		u.log.Warn().Err(err).Str("type", kind).Msg("record notification")
	}
}

func actorName(s *session.Session) string {
	if s == nil || s.User == nil {
		return "someone"
	}
	if s.User.Name != "" {
		return s.User.Name
	}
	return s.User.Email
}
