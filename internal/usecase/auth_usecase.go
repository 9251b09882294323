package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/merit-ol/mppms/internal/config"
	"github.com/merit-ol/mppms/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidGoogleToken = errors.New("invalid google token")
	ErrAccountBlocked     = fmt.Errorf("%w: account is blocked", domain.ErrForbidden)
)

const (
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v3/userinfo"
	googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
)

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

const minPasswordLength = 8

type AuthUsecase struct {
	userRepo   domain.UserRepository
	tokenRepo  domain.RefreshTokenRepository
	cfg        *config.JWTConfig
	oauth      *oauth2.Config
	ownerEmail string
	log        zerolog.Logger

	userInfoURL  string
	tokenInfoURL string
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

func NewAuthUsecase(
	userRepo domain.UserRepository,
	tokenRepo domain.RefreshTokenRepository,
	cfg *config.JWTConfig,
	googleCfg *config.GoogleConfig,
	ownerEmail string,
	log zerolog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		cfg:       cfg,
		oauth: &oauth2.Config{
			ClientID:     googleCfg.ClientID,
			ClientSecret: googleCfg.ClientSecret,
			RedirectURL:  googleCfg.RedirectURL,
			Endpoint:     googleEndpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		ownerEmail:   strings.ToLower(strings.TrimSpace(ownerEmail)),
		log:          log.With().Str("component", "auth").Logger(),
		userInfoURL:  googleUserInfoURL,
		tokenInfoURL: googleTokenInfoURL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *AuthUsecase) Register(ctx context.Context, email, password, name string) (*domain.User, *TokenPair, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, domain.Invalid("email", "must be a valid address")
	}
	if len(password) < minPasswordLength {
		return nil, nil, domain.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	existing, err := u.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return nil, nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Name:         strings.TrimSpace(name),
		AuthProvider: "email",
		Role:         domain.RoleStaff,
	}
	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}
	u.log.Info().Str("user_id", user.ID.String()).Msg("profile provisioned")

	return u.signIn(ctx, user)
}

func (u *AuthUsecase) Login(ctx context.Context, email, password string) (*domain.User, *TokenPair, error) {
	user, err := u.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	return u.signIn(ctx, user)
}

// GoogleUserInfo represents the response from Google's userinfo endpoint
type GoogleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleCredentials carries either an authorization code from the redirect
// flow or an access token obtained by the client.
type GoogleCredentials struct {
	Code        string `json:"code"`
	AccessToken string `json:"access_token"`
}

func (u *AuthUsecase) GoogleLogin(ctx context.Context, creds GoogleCredentials) (*domain.User, *TokenPair, error) {
	client, err := u.googleClient(ctx, creds)
	if err != nil {
		return nil, nil, err
	}

	info, err := u.fetchGoogleUserInfo(ctx, client)
	if err != nil {
		u.log.Warn().Err(err).Msg("google userinfo rejected")
		return nil, nil, ErrInvalidGoogleToken
	}
	if !info.EmailVerified {
		u.log.Warn().Str("sub", info.Sub).Msg("google email not verified")
		return nil, nil, ErrInvalidGoogleToken
	}

	user, err := u.userRepo.GetByProviderID(ctx, "google", info.Sub)
	if err != nil {
		return nil, nil, err
	}

	if user == nil {
		email := normalizeEmail(info.Email)
		user, err = u.userRepo.GetByEmail(ctx, email)
		if err != nil {
			return nil, nil, err
		}

		if user != nil {
			// Link Google to the existing account.
			user.AuthProvider = "google"
			user.ProviderID = info.Sub
			if user.Name == "" {
				user.Name = info.Name
			}
			if err := u.userRepo.Update(ctx, user); err != nil {
				return nil, nil, err
			}
		} else {
			user = &domain.User{
				Email:        email,
				Name:         info.Name,
				AuthProvider: "google",
				ProviderID:   info.Sub,
				Role:         domain.RoleStaff,
			}
			if err := u.userRepo.Create(ctx, user); err != nil {
				return nil, nil, err
			}
			u.log.Info().Str("user_id", user.ID.String()).Msg("profile provisioned")
		}
	}

	return u.signIn(ctx, user)
}

func (u *AuthUsecase) googleClient(ctx context.Context, creds GoogleCredentials) (*http.Client, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: 10 * time.Second})

	switch {
	case creds.AccessToken != "":
		if u.oauth.ClientID == "" {
			return nil, domain.Invalid("access_token", "google sign-in is not configured")
		}
		if err := u.checkTokenAudience(ctx, creds.AccessToken); err != nil {
			u.log.Warn().Err(err).Msg("google access token rejected")
			return nil, ErrInvalidGoogleToken
		}
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"})
		return oauth2.NewClient(ctx, src), nil
	case creds.Code != "":
		if u.oauth.ClientID == "" {
			return nil, domain.Invalid("code", "google sign-in is not configured")
		}
		tok, err := u.oauth.Exchange(ctx, creds.Code)
		if err != nil {
			u.log.Warn().Err(err).Msg("google code exchange failed")
			return nil, ErrInvalidGoogleToken
		}
		return u.oauth.Client(ctx, tok), nil
	default:
		return nil, domain.Invalid("access_token", "code or access_token is required")
	}
}

// GoogleAuthURL returns the consent page address for the redirect flow.
func (u *AuthUsecase) GoogleAuthURL(state string) string {
	return u.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleTokenInfo struct {
	Aud string `json:"aud"`
	Azp string `json:"azp"`
}

// checkTokenAudience asks Google who an access token was issued to and
// refuses tokens minted for another OAuth client.
func (u *AuthUsecase) checkTokenAudience(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.tokenInfoURL, nil)
	if err != nil {
		return err
	}
	q := req.URL.Query()
	q.Set("access_token", accessToken)
	req.URL.RawQuery = q.Encode()

	client, _ := ctx.Value(oauth2.HTTPClient).(*http.Client)
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tokeninfo status %d", resp.StatusCode)
	}

	var info googleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return err
	}
	if info.Aud != u.oauth.ClientID && info.Azp != u.oauth.ClientID {
		return fmt.Errorf("token issued to %q", info.Aud)
	}
	return nil
}

func (u *AuthUsecase) fetchGoogleUserInfo(ctx context.Context, client *http.Client) (*GoogleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.userInfoURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	if info.Email == "" || info.Sub == "" {
		return nil, errors.New("userinfo missing email or subject")
	}
	return &info, nil
}

// signIn finishes every successful authentication: blocked profiles are
// refused, the owner email is promoted when no super-admin exists yet, and a
// fresh token pair is issued.
func (u *AuthUsecase) signIn(ctx context.Context, user *domain.User) (*domain.User, *TokenPair, error) {
	if user.Blocked {
		return nil, nil, ErrAccountBlocked
	}

	if u.ownerEmail != "" && normalizeEmail(user.Email) == u.ownerEmail && user.Role != domain.RoleSuperAdmin {
		promoted, err := u.userRepo.PromoteOwner(ctx, user.ID)
		if err != nil {
			return nil, nil, err
		}
		if promoted {
			user.Role = domain.RoleSuperAdmin
			u.log.Info().Str("user_id", user.ID.String()).Msg("owner promoted to super-admin")
		}
	}

	if err := u.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		u.log.Warn().Err(err).Msg("update last login")
	}

	tokens, err := u.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// PromoteOwnerByEmail runs owner promotion outside a sign-in. It reports
// whether the user became super-admin.
func (u *AuthUsecase) PromoteOwnerByEmail(ctx context.Context, email string) (bool, error) {
	user, err := u.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, ErrUserNotFound
	}
	return u.userRepo.PromoteOwner(ctx, user.ID)
}

func (u *AuthUsecase) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	tokenHash := hashToken(refreshToken)

	storedToken, err := u.tokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if storedToken == nil {
		return nil, ErrInvalidToken
	}

	if storedToken.ExpiresAt.Before(time.Now()) {
		_ = u.tokenRepo.DeleteByTokenHash(ctx, tokenHash)
		return nil, ErrTokenExpired
	}

	user, err := u.userRepo.GetByID(ctx, storedToken.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Blocked {
		return nil, ErrAccountBlocked
	}

	if err := u.tokenRepo.DeleteByTokenHash(ctx, tokenHash); err != nil {
		return nil, err
	}
	return u.generateTokenPair(ctx, user)
}

func (u *AuthUsecase) Logout(ctx context.Context, refreshToken string) error {
	return u.tokenRepo.DeleteByTokenHash(ctx, hashToken(refreshToken))
}

func (u *AuthUsecase) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (u *AuthUsecase) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return u.userRepo.GetByID(ctx, id)
}

func (u *AuthUsecase) generateTokenPair(ctx context.Context, user *domain.User) (*TokenPair, error) {
	now := time.Now()
	expiresAt := now.Add(u.cfg.AccessExpiry.Duration)
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   user.ID.String(),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessTokenString, err := accessToken.SignedString([]byte(u.cfg.Secret))
	if err != nil {
		return nil, err
	}

	refreshToken := uuid.New().String()
	storedRefreshToken := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: now.Add(u.cfg.RefreshExpiry.Duration),
	}
	if err := u.tokenRepo.Create(ctx, storedRefreshToken); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessTokenString,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt.Unix(),
	}, nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
