package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/session"
)

// AdminUsecase manages profiles: listing, staff/admin promotion, blocking
// and ownership transfer.
type AdminUsecase struct {
	users  domain.UserRepository
	tokens domain.RefreshTokenRepository
	notes  domain.NotificationRepository
	log    zerolog.Logger
}

func NewAdminUsecase(users domain.UserRepository, tokens domain.RefreshTokenRepository, notes domain.NotificationRepository, log zerolog.Logger) *AdminUsecase {
	return &AdminUsecase{
		users:  users,
		tokens: tokens,
		notes:  notes,
		log:    log.With().Str("component", "admin").Logger(),
	}
}

func (u *AdminUsecase) ListUsers(ctx context.Context, s *session.Session, limit, offset int) ([]*domain.User, int, error) {
	if !s.Can(domain.RoleAdmin) {
		return nil, 0, domain.ErrForbidden
	}
	return u.users.ListAll(ctx, limit, offset)
}

func (u *AdminUsecase) target(ctx context.Context, s *session.Session, id uuid.UUID) (*domain.User, error) {
	if !s.Can(domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	if id == s.UserID() {
		return nil, fmt.Errorf("%w: cannot change your own account", domain.ErrForbidden)
	}
	user, err := u.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrNotFound
	}
	return user, nil
}

// SetRole moves a user between staff and admin. Super-admin is only granted
// by TransferOwnership and cannot be taken away here.
func (u *AdminUsecase) SetRole(ctx context.Context, s *session.Session, id uuid.UUID, role domain.Role) (*domain.User, error) {
	if role != domain.RoleStaff && role != domain.RoleAdmin {
		return nil, domain.Invalid("role", "must be staff or admin")
	}
	user, err := u.target(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if user.Role == domain.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: the super-admin role can only be transferred", domain.ErrForbidden)
	}
	if user.Role == role {
		return user, nil
	}

	if err := u.users.SetRole(ctx, user.ID, role); err != nil {
		return nil, err
	}
	user.Role = role
	u.log.Info().Str("user_id", user.ID.String()).Str("role", role.String()).
		Str("by", s.UserID().String()).Msg("role changed")
	return user, nil
}

// SetBlocked blocks or unblocks a staff user. Blocking revokes every refresh
// token, and the next authenticated request is refused.
func (u *AdminUsecase) SetBlocked(ctx context.Context, s *session.Session, id uuid.UUID, blocked bool) (*domain.User, error) {
	user, err := u.target(ctx, s, id)
	if err != nil {
		return nil, err
	}
	if user.Role != domain.RoleStaff {
		return nil, fmt.Errorf("%w: only staff accounts can be blocked", domain.ErrForbidden)
	}

	if err := u.users.SetBlocked(ctx, user.ID, blocked); err != nil {
		return nil, err
	}
	if blocked {
		if err := u.tokens.DeleteByUserID(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	user.Blocked = blocked
	u.log.Info().Str("user_id", user.ID.String()).Bool("blocked", blocked).
		Str("by", s.UserID().String()).Msg("block state changed")
	return user, nil
}

// TransferOwnership hands the super-admin role to another unblocked user and
// demotes the caller to admin in one step.
func (u *AdminUsecase) TransferOwnership(ctx context.Context, s *session.Session, to uuid.UUID) error {
	if !s.Can(domain.RoleSuperAdmin) {
		return domain.ErrForbidden
	}
	if to == s.UserID() {
		return domain.Invalid("user_id", "already the owner")
	}
	next, err := u.users.GetByID(ctx, to)
	if err != nil {
		return err
	}
	if next == nil {
		return domain.ErrNotFound
	}
	if next.Blocked {
		return domain.Invalid("user_id", "cannot transfer ownership to a blocked user")
	}

	if err := u.users.TransferOwnership(ctx, s.UserID(), to); err != nil {
		return err
	}

	from := s.UserID()
	n := &domain.Notification{
		Type:     domain.NotifyOwnershipTransferred,
		Message:  fmt.Sprintf("ownership transferred to %s", next.Email),
		TargetID: &to,
		ActorID:  &from,
	}
	if err := u.notes.Create(ctx, n); err != nil {
		u.log.Warn().Err(err).Msg("record notification")
	}
	u.log.Info().Str("from", from.String()).Str("to", to.String()).Msg("ownership transferred")
	return nil
}
