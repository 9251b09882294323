package http

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/session"
)

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit := min(max(queryInt(r, "limit", 50), 1), 200)
	offset := max(queryInt(r, "offset", 0), 0)

	users, total, err := h.adminUsecase.ListUsers(r.Context(), session.From(r.Context()), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*domain.User]{Items: users, Total: total})
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.adminUsecase.SetRole(r.Context(), session.From(r.Context()), id, role)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type blockRequest struct {
	Blocked bool `json:"blocked"`
}

func (h *Handler) SetUserBlocked(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req blockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	user, err := h.adminUsecase.SetBlocked(r.Context(), session.From(r.Context()), id, req.Blocked)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type ownershipRequest struct {
	UserID uuid.UUID `json:"user_id"`
}

func (h *Handler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req ownershipRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.adminUsecase.TransferOwnership(r.Context(), session.From(r.Context()), req.UserID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
