package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merit-ol/mppms/internal/catalog"
	"github.com/merit-ol/mppms/internal/domain"
)

type PaperRepository struct {
	db *pgxpool.Pool
}

func NewPaperRepository(db *pgxpool.Pool) *PaperRepository {
	return &PaperRepository{db: db}
}

const paperColumns = `id, title, subject, category, part, language, year, file_key, file_url, file_size,
	content_hash, keywords, added_by, status, created_at, updated_at, deleted_at`

func scanPaper(row pgx.Row) (*domain.Paper, error) {
	p := &domain.Paper{}
	var status string
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Subject,
		&p.Category,
		&p.Part,
		&p.Language,
		&p.Year,
		&p.FileKey,
		&p.FileURL,
		&p.FileSize,
		&p.ContentHash,
		&p.Keywords,
		&p.AddedBy,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Status = domain.PaperStatus(status)
	return p, nil
}

func (r *PaperRepository) Create(ctx context.Context, paper *domain.Paper) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}
	if paper.Status == "" {
		paper.Status = domain.PaperActive
	}
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = time.Now().UTC()
	}
	paper.UpdatedAt = paper.CreatedAt
	catalog.Reindex(paper)

	query := `
		INSERT INTO papers (` + paperColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err := r.db.Exec(ctx, query,
		paper.ID,
		paper.Title,
		paper.Subject,
		paper.Category,
		paper.Part,
		paper.Language,
		paper.Year,
		paper.FileKey,
		paper.FileURL,
		paper.FileSize,
		paper.ContentHash,
		paper.Keywords,
		paper.AddedBy,
		string(paper.Status),
		paper.CreatedAt,
		paper.UpdatedAt,
		paper.DeletedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateContent
	}
	return wrap("create paper", err)
}

func (r *PaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	p, err := scanPaper(r.db.QueryRow(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = $1`, id))
	return p, wrap("get paper", err)
}

func (r *PaperRepository) FindActiveByHash(ctx context.Context, hash string) (*domain.Paper, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	query := `SELECT ` + paperColumns + ` FROM papers WHERE content_hash = $1 AND status = 'active'`
	p, err := scanPaper(r.db.QueryRow(ctx, query, hash))
	return p, wrap("find paper by hash", err)
}

// Update rewrites the descriptive fields, the file reference and the keyword
// set. Status is not touched.
func (r *PaperRepository) Update(ctx context.Context, paper *domain.Paper) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	catalog.Reindex(paper)
	paper.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE papers SET title = $2, subject = $3, category = $4, part = $5, language = $6,
			year = $7, keywords = $8, file_key = $9, file_url = $10, file_size = $11,
			content_hash = $12, updated_at = $13
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		paper.ID, paper.Title, paper.Subject, paper.Category, paper.Part, paper.Language,
		paper.Year, paper.Keywords, paper.FileKey, paper.FileURL, paper.FileSize,
		paper.ContentHash, paper.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateContent
	}
	if err != nil {
		return wrap("update paper", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PaperRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.PaperStatus) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	query := `
		UPDATE papers SET status = $2, updated_at = NOW(),
			deleted_at = CASE WHEN $2 = 'deleted' THEN NOW() ELSE NULL END
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, string(status))
	if isUniqueViolation(err) {
		return domain.ErrDuplicateContent
	}
	if err != nil {
		return wrap("set paper status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PaperRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM papers WHERE id = $1`, id)
	if err != nil {
		return wrap("delete paper", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// buildSearchWhere translates a filter into a WHERE clause with positional
// arguments starting at $startArg.
func buildSearchWhere(f domain.PaperFilter, startArg int) (string, []any) {
	c := catalog.Normalize(f)
	if c.YearInvalid {
		return "WHERE FALSE", nil
	}

	status := domain.PaperActive
	if c.Scope == domain.ScopeDeleted {
		status = domain.PaperDeleted
	}

	conditions := []string{fmt.Sprintf("status = $%d", startArg)}
	args := []any{string(status)}
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, startArg+len(args)-1))
	}

	if c.Subject != "" {
		add("subject = $%d", c.Subject)
	}
	if c.Category != "" {
		add("category = $%d", c.Category)
	}
	if c.Part != "" {
		add("part = $%d", c.Part)
	}
	if c.Language != "" {
		add("language = $%d", c.Language)
	}
	if c.HasYear {
		add("year = $%d", c.YearValue)
	}
	if c.Term != "" {
		add("keywords @> ARRAY[$%d]::text[]", c.Term)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

const searchOrder = `ORDER BY created_at DESC, id::text ASC`

func (r *PaperRepository) Search(ctx context.Context, filter domain.PaperFilter, limit, offset int) ([]*domain.Paper, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	where, args := buildSearchWhere(filter, 1)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM papers `+where, args...).Scan(&total); err != nil {
		return nil, 0, wrap("count papers", err)
	}
	if total == 0 {
		return []*domain.Paper{}, 0, nil
	}

	argNum := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM papers %s %s LIMIT $%d OFFSET $%d`,
		paperColumns, where, searchOrder, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrap("search papers", err)
	}
	defer rows.Close()

	papers := make([]*domain.Paper, 0, limit)
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, 0, wrap("scan paper", err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap("search papers", err)
	}
	return papers, total, nil
}

func (r *PaperRepository) CountContributors(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(DISTINCT added_by) FROM papers WHERE status = 'active'`).Scan(&n)
	return n, wrap("count contributors", err)
}

// ListAll streams every paper regardless of status in creation order. It is
// used by offline maintenance such as keyword reindexing.
func (r *PaperRepository) ListAll(ctx context.Context, fn func(*domain.Paper) error) error {
	rows, err := r.db.Query(ctx, `SELECT `+paperColumns+` FROM papers ORDER BY created_at, id`)
	if err != nil {
		return wrap("list papers", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return wrap("scan paper", err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return wrap("list papers", rows.Err())
}

// SetKeywords overwrites the stored keyword set without touching updated_at.
func (r *PaperRepository) SetKeywords(ctx context.Context, id uuid.UUID, keywords []string) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE papers SET keywords = $2 WHERE id = $1`, id, keywords)
	if err != nil {
		return wrap("set keywords", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
