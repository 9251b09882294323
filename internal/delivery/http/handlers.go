package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/logging"
	"github.com/merit-ol/mppms/internal/session"
	"github.com/merit-ol/mppms/internal/usecase"
)

// ReadinessChecker reports whether the backing stores accept queries.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

type Handler struct {
	authUsecase  *usecase.AuthUsecase
	paperUsecase *usecase.PaperUsecase
	adminUsecase *usecase.AdminUsecase
	siteUsecase  *usecase.SiteUsecase
	ready        ReadinessChecker
	maxUpload    int64
}

func NewHandler(
	auth *usecase.AuthUsecase,
	papers *usecase.PaperUsecase,
	admin *usecase.AdminUsecase,
	site *usecase.SiteUsecase,
	ready ReadinessChecker,
	maxUpload int64,
) *Handler {
	return &Handler{
		authUsecase:  auth,
		paperUsecase: papers,
		adminUsecase: admin,
		siteUsecase:  site,
		ready:        ready,
		maxUpload:    maxUpload,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// respondError maps usecase and domain errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500 without detail.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error())
	case errors.Is(err, domain.ErrDuplicateContent):
		writeError(w, http.StatusConflict, "DUPLICATE_CONTENT", "A paper with identical content already exists")
	case errors.Is(err, usecase.ErrEmailExists):
		writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already exists")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, usecase.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, usecase.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
	case errors.Is(err, usecase.ErrInvalidGoogleToken):
		writeError(w, http.StatusUnauthorized, "INVALID_GOOGLE_TOKEN", "Invalid Google token")
	case errors.Is(err, usecase.ErrInvalidToken), errors.Is(err, usecase.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
	case errors.Is(err, usecase.ErrAccountBlocked):
		writeError(w, http.StatusForbidden, "ACCOUNT_BLOCKED", "Account is blocked")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden")
	case errors.Is(err, domain.ErrBackendUnavailable):
		logging.FromRequest(r).Error().Err(err).Msg("backend unavailable")
		writeError(w, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", "Service temporarily unavailable")
	default:
		logging.FromRequest(r).Error().Err(err).Msg("unhandled error")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Invalid("body", "invalid request body")
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domain.ErrNotFound
	}
	return id, nil
}

// queryInt returns the named query parameter, or def when it is absent or
// not a number.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

// Auth handlers

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	User   *domain.User       `json:"user"`
	Tokens *usecase.TokenPair `json:"tokens"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, tokens, err := h.authUsecase.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{User: user, Tokens: tokens})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, tokens, err := h.authUsecase.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}

func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req usecase.GoogleCredentials
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, tokens, err := h.authUsecase.GoogleLogin(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{User: user, Tokens: tokens})
}

// GoogleAuthURL returns the consent page for the redirect flow. The caller
// supplies the state value it will verify on return.
func (h *Handler) GoogleAuthURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"url": h.authUsecase.GoogleAuthURL(r.URL.Query().Get("state"))})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	tokens, err := h.authUsecase.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.authUsecase.Logout(r.Context(), req.RefreshToken); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	s := session.From(r.Context())
	if s == nil {
		respondError(w, r, domain.ErrUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, s.User)
}

// Health and readiness

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready.Ready(r.Context()); err != nil {
			logging.FromRequest(r).Warn().Err(err).Msg("readiness check failed")
			writeError(w, http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE", "Not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
