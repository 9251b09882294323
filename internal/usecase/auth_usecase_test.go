package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/session"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)

	user, tokens, err := f.auth.Register(ctx, " Staff@Example.com ", "password123", "Sam")
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", user.Email)
	assert.Equal(t, domain.RoleStaff, user.Role)
	assert.NotEmpty(t, tokens.AccessToken)

	_, _, err = f.auth.Register(ctx, "staff@example.com", "password123", "")
	assert.ErrorIs(t, err, ErrEmailExists)
	_, _, err = f.auth.Register(ctx, "new@example.com", "short", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, _, err = f.auth.Register(ctx, "not-an-email", "password123", "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = f.auth.Login(ctx, "staff@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.auth.Login(ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	again, tokens, err := f.auth.Login(ctx, "STAFF@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	claims, err := f.auth.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestOwnerPromotion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)

	early := f.signUp(t, "early@example.com")
	assert.Equal(t, domain.RoleStaff, early.User.Role)

	owner, _, err := f.auth.Register(ctx, "OWNER@example.com", "password123", "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, owner.Role)

	// Once ownership moves on, signing in with the owner email does not
	// reclaim it.
	require.NoError(t, f.admin.TransferOwnership(ctx, session.New(owner), early.UserID()))

	back, _, err := f.auth.Login(ctx, ownerEmail, "password123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, back.Role)

	promoted, err := f.auth.PromoteOwnerByEmail(ctx, ownerEmail)
	require.NoError(t, err)
	assert.False(t, promoted)

	_, err = f.auth.PromoteOwnerByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestBlockedUserCannotSignIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)
	boss := f.signUp(t, ownerEmail)

	_, tokens, err := f.auth.Register(ctx, "staff@example.com", "password123", "")
	require.NoError(t, err)
	staff, err := f.store.Users().GetByEmail(ctx, "staff@example.com")
	require.NoError(t, err)

	_, err = f.admin.SetBlocked(ctx, boss, staff.ID, true)
	require.NoError(t, err)

	_, _, err = f.auth.Login(ctx, "staff@example.com", "password123")
	assert.ErrorIs(t, err, ErrAccountBlocked)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.auth.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "blocking revokes refresh tokens")
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)

	_, tokens, err := f.auth.Register(ctx, "staff@example.com", "password123", "")
	require.NoError(t, err)

	next, err := f.auth.RefreshToken(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, next.RefreshToken)

	_, err = f.auth.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "used refresh token is spent")

	require.NoError(t, f.auth.Logout(ctx, next.RefreshToken))
	_, err = f.auth.RefreshToken(ctx, next.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken_Expired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)

	f.auth.cfg.RefreshExpiry.Duration = -time.Minute
	_, tokens, err := f.auth.Register(ctx, "staff@example.com", "password123", "")
	require.NoError(t, err)

	_, err = f.auth.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = f.auth.RefreshToken(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired token is dropped on first use")
}

func TestValidateAccessToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)

	_, tokens, err := f.auth.Register(ctx, "staff@example.com", "password123", "")
	require.NoError(t, err)

	_, err = f.auth.ValidateAccessToken(tokens.AccessToken + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	f.auth.cfg.AccessExpiry.Duration = -time.Minute
	_, expired, err := f.auth.Login(ctx, "staff@example.com", "password123")
	require.NoError(t, err)
	_, err = f.auth.ValidateAccessToken(expired.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

const testClientID = "mppms-web"

// fakeGoogle serves tokeninfo and userinfo for the access token "good-token"
// and points the fixture's auth usecase at it.
func fakeGoogle(t *testing.T, f *fixture, audience string, info GoogleUserInfo) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/tokeninfo", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "good-token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(googleTokenInfo{Aud: audience, Azp: audience})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(info)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f.auth.oauth.ClientID = testClientID
	f.auth.tokenInfoURL = srv.URL + "/tokeninfo"
	f.auth.userInfoURL = srv.URL + "/userinfo"
}

func TestGoogleLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)
	fakeGoogle(t, f, testClientID, GoogleUserInfo{
		Sub:           "google-123",
		Email:         "Owner@Example.com",
		EmailVerified: true,
		Name:          "The Owner",
	})

	user, tokens, err := f.auth.GoogleLogin(ctx, GoogleCredentials{AccessToken: "good-token"})
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", user.Email)
	assert.Equal(t, "google", user.AuthProvider)
	assert.Equal(t, domain.RoleSuperAdmin, user.Role)
	assert.NotEmpty(t, tokens.AccessToken)

	again, _, err := f.auth.GoogleLogin(ctx, GoogleCredentials{AccessToken: "good-token"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	_, _, err = f.auth.GoogleLogin(ctx, GoogleCredentials{AccessToken: "bad-token"})
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)
}

func TestGoogleLogin_NotConfigured(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)

	_, _, err := f.auth.GoogleLogin(ctx, GoogleCredentials{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, _, err = f.auth.GoogleLogin(ctx, GoogleCredentials{Code: "abc"})
	assert.ErrorIs(t, err, domain.ErrValidation, "code flow needs a client id")
	_, _, err = f.auth.GoogleLogin(ctx, GoogleCredentials{AccessToken: "good-token"})
	assert.ErrorIs(t, err, domain.ErrValidation, "token flow needs a client id")
}

func TestGoogleLogin_LinksExistingAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)
	existing := f.signUp(t, "staff@example.com")
	fakeGoogle(t, f, testClientID, GoogleUserInfo{Sub: "g-1", Email: "staff@example.com", EmailVerified: true, Name: "Staff"})

	user, _, err := f.auth.GoogleLogin(ctx, GoogleCredentials{AccessToken: "good-token"})
	require.NoError(t, err)
	assert.Equal(t, existing.UserID(), user.ID)
	assert.Equal(t, "g-1", user.ProviderID)
	assert.Equal(t, domain.RoleStaff, user.Role)
}

func TestGoogleLogin_UnverifiedEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("owner email is not promoted", func(t *testing.T) {
		f := newFixture(t, 8)
		fakeGoogle(t, f, testClientID, GoogleUserInfo{Sub: "intruder", Email: ownerEmail})

		_, _, err := f.auth.GoogleLogin(ctx, GoogleCredentials{AccessToken: "good-token"})
		assert.ErrorIs(t, err, ErrInvalidGoogleToken)

		owner, err := f.store.Users().GetByEmail(ctx, ownerEmail)
		require.NoError(t, err)
		assert.Nil(t, owner, "no profile may be provisioned")
	})

	t.Run("existing account is not linked", func(t *testing.T) {
		f := newFixture(t, 8)
		victim := f.signUp(t, "staff@example.com")
		fakeGoogle(t, f, testClientID, GoogleUserInfo{Sub: "intruder", Email: "staff@example.com"})

		_, _, err := f.auth.GoogleLogin(ctx, GoogleCredentials{AccessToken: "good-token"})
		assert.ErrorIs(t, err, ErrInvalidGoogleToken)

		stored, err := f.store.Users().GetByID(ctx, victim.UserID())
		require.NoError(t, err)
		assert.Equal(t, "email", stored.AuthProvider)
		assert.Empty(t, stored.ProviderID)
	})
}

func TestGoogleLogin_ForeignAudience(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8)
	fakeGoogle(t, f, "someone-elses-app", GoogleUserInfo{
		Sub:           "google-123",
		Email:         "staff@example.com",
		EmailVerified: true,
	})

	_, _, err := f.auth.GoogleLogin(ctx, GoogleCredentials{AccessToken: "good-token"})
	assert.ErrorIs(t, err, ErrInvalidGoogleToken)

	user, err := f.store.Users().GetByEmail(ctx, "staff@example.com")
	require.NoError(t, err)
	assert.Nil(t, user)
}
