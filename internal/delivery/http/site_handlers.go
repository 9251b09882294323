package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/session"
)

func (h *Handler) GetFilters(w http.ResponseWriter, r *http.Request) {
	v, err := h.siteUsecase.Filters(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var req domain.FilterVocabulary
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	v, err := h.siteUsecase.UpdateFilters(r.Context(), session.From(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) GetSocials(w http.ResponseWriter, r *http.Request) {
	v, err := h.siteUsecase.Socials(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) UpdateSocials(w http.ResponseWriter, r *http.Request) {
	var req domain.Socials
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	v, err := h.siteUsecase.UpdateSocials(r.Context(), session.From(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) GetDonation(w http.ResponseWriter, r *http.Request) {
	v, err := h.siteUsecase.Donation(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) UpdateDonation(w http.ResponseWriter, r *http.Request) {
	var req domain.DonationSettings
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	v, err := h.siteUsecase.UpdateDonation(r.Context(), session.From(r.Context()), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type statResponse struct {
	Kind  domain.StatKind `json:"kind"`
	Value int64           `json:"value"`
}

func (h *Handler) IncrementStat(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseStatKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	value, err := h.siteUsecase.IncrementStat(r.Context(), kind)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statResponse{Kind: kind, Value: value})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.siteUsecase.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := min(max(queryInt(r, "limit", 20), 1), 100)
	offset := max(queryInt(r, "offset", 0), 0)

	items, total, err := h.siteUsecase.Notifications(r.Context(), session.From(r.Context()), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*domain.Notification]{Items: items, Total: total})
}
