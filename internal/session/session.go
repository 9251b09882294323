// Package session carries the signed-in profile through a request.
//
// A Session is built by the authentication middleware after the access token
// has been verified and the profile reloaded, so role and blocked state are
// never older than the request itself.
package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/merit-ol/mppms/internal/domain"
)

type Session struct {
	User *domain.User
}

func New(user *domain.User) *Session {
	return &Session{User: user}
}

func (s *Session) UserID() uuid.UUID {
	if s == nil || s.User == nil {
		return uuid.Nil
	}
	return s.User.ID
}

// Can reports whether the session may act with at least the given role.
// Blocked profiles can do nothing.
func (s *Session) Can(min domain.Role) bool {
	if s == nil || s.User == nil || s.User.Blocked {
		return false
	}
	return s.User.Role.AtLeast(min)
}

// Owns reports whether the session's user added the paper.
func (s *Session) Owns(p *domain.Paper) bool {
	return s != nil && s.User != nil && p != nil && p.AddedBy == s.User.ID
}

type contextKey struct{}

func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// From returns the request's session, or nil for anonymous requests.
func From(ctx context.Context) *Session {
	s, _ := ctx.Value(contextKey{}).(*Session)
	return s
}
