package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/merit-ol/mppms/internal/config"
	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/repository/memory"
	"github.com/merit-ol/mppms/internal/session"
	"github.com/merit-ol/mppms/pkg/objectstore"
)

const ownerEmail = "owner@example.com"

// fixture wires every usecase onto the in-memory backend.
type fixture struct {
	store   *memory.Store
	objects *objectstore.Memory
	auth    *AuthUsecase
	papers  *PaperUsecase
	admin   *AdminUsecase
	site    *SiteUsecase
}

func newFixture(t *testing.T, pageSize int) *fixture {
	t.Helper()
	store := memory.NewStore()
	objects := objectstore.NewMemory("http://files.local")
	log := zerolog.Nop()

	jwtCfg := &config.JWTConfig{
		Secret:        "test-secret",
		AccessExpiry:  config.Duration{Duration: time.Minute},
		RefreshExpiry: config.Duration{Duration: time.Hour},
	}
	return &fixture{
		store:   store,
		objects: objects,
		auth:    NewAuthUsecase(store.Users(), store.Tokens(), jwtCfg, &config.GoogleConfig{}, ownerEmail, log),
		papers:  NewPaperUsecase(store.Papers(), store.Notifications(), store.Stats(), objects, pageSize, 1<<20, log),
		admin:   NewAdminUsecase(store.Users(), store.Tokens(), store.Notifications(), log),
		site:    NewSiteUsecase(store.Configs(), store.Stats(), store.Papers(), store.Notifications(), 8, time.Minute, log),
	}
}

// signUp registers a user and returns their session.
func (f *fixture) signUp(t *testing.T, email string) *session.Session {
	t.Helper()
	user, _, err := f.auth.Register(context.Background(), email, "password123", "")
	require.NoError(t, err)
	return session.New(user)
}

// reload refreshes a session from the store, as the middleware would.
func (f *fixture) reload(t *testing.T, s *session.Session) *session.Session {
	t.Helper()
	user, err := f.store.Users().GetByID(context.Background(), s.UserID())
	require.NoError(t, err)
	return session.New(user)
}

func pdf(body string) io.Reader {
	return bytes.NewReader([]byte("%PDF-1.7\n" + body))
}

func input(title, subject string, year int) PaperInput {
	return PaperInput{Title: title, Subject: subject, Category: domain.CategoryPaper, Year: year}
}

// failingStore rejects every write.
type failingStore struct{ objectstore.Store }

func (failingStore) Put(context.Context, string, io.Reader, int64, string) error {
	return errors.New("bucket unavailable")
}

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

