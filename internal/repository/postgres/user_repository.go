package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/merit-ol/mppms/internal/domain"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, name, auth_provider, provider_id, role, is_blocked, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var role int16
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.AuthProvider,
		&user.ProviderID,
		&role,
		&user.Blocked,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	user.Role = domain.Role(role)
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	query := `
		INSERT INTO users (id, email, password_hash, name, auth_provider, provider_id, role, is_blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.AuthProvider == "" {
		user.AuthProvider = "email"
	}
	if !user.Role.Valid() {
		user.Role = domain.RoleStaff
	}

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.AuthProvider,
		user.ProviderID,
		int16(user.Role),
		user.Blocked,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.Invalid("email", "already registered")
	}
	return wrap("create user", err)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, wrap("get user", err)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	return u, wrap("get user by email", err)
}

func (r *UserRepository) GetByProviderID(ctx context.Context, provider, providerID string) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE auth_provider = $1 AND provider_id = $2`
	u, err := scanUser(r.db.QueryRow(ctx, query, provider, providerID))
	return u, wrap("get user by provider", err)
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	query := `
		UPDATE users SET email = $2, name = $3, auth_provider = $4, provider_id = $5, updated_at = $6
		WHERE id = $1
	`

	user.UpdatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, query, user.ID, user.Email, user.Name, user.AuthProvider, user.ProviderID, user.UpdatedAt)
	return wrap("update user", err)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return wrap("update last login", err)
}

func (r *UserRepository) SetRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	return r.exec(ctx, "set role", `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, int16(role))
}

func (r *UserRepository) SetBlocked(ctx context.Context, id uuid.UUID, blocked bool) error {
	return r.exec(ctx, "set blocked", `UPDATE users SET is_blocked = $2, updated_at = NOW() WHERE id = $1`, id, blocked)
}

func (r *UserRepository) exec(ctx context.Context, op, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, query, args...)
	if isUniqueViolation(err) {
		return domain.ErrForbidden
	}
	if err != nil {
		return wrap(op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepository) PromoteOwner(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	query := `
		UPDATE users SET role = $2, updated_at = NOW()
		WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM users WHERE role = $2)
	`
	tag, err := r.db.Exec(ctx, query, id, int16(domain.RoleSuperAdmin))
	if isUniqueViolation(err) {
		// Lost a race with another promotion.
		return false, nil
	}
	if err != nil {
		return false, wrap("promote owner", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *UserRepository) TransferOwnership(ctx context.Context, from, to uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()

	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 AND role = $3`,
			from, int16(domain.RoleAdmin), int16(domain.RoleSuperAdmin))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrForbidden
		}

		tag, err = tx.Exec(ctx,
			`UPDATE users SET role = $2, is_blocked = FALSE, updated_at = NOW() WHERE id = $1`,
			to, int16(domain.RoleSuperAdmin))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	return wrap("transfer ownership", err)
}

func (r *UserRepository) ListAll(ctx context.Context, limit, offset int) ([]*domain.User, int, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	limit = clampLimit(limit)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, wrap("count users", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, wrap("list users", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0, limit)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, wrap("scan user", err)
		}
		users = append(users, user)
	}
	return users, total, wrap("list users", rows.Err())
}
