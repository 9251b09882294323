package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/merit-ol/mppms/internal/catalog"
	"github.com/merit-ol/mppms/internal/domain"
	"github.com/merit-ol/mppms/internal/session"
	"github.com/merit-ol/mppms/internal/usecase"
)

// multipartMemory is how much of a multipart body is kept in memory before
// parts spill to temporary files.
const multipartMemory = 8 << 20

// paperListResponse echoes the criteria so clients can tell when a change
// of filters should send them back to page one.
type paperListResponse struct {
	catalog.Page[*domain.Paper]
	Criteria domain.PaperFilter `json:"criteria"`
}

func filterFromQuery(r *http.Request) domain.PaperFilter {
	q := r.URL.Query()
	return domain.PaperFilter{
		Subject:  q.Get("subject"),
		Year:     q.Get("year"),
		Category: q.Get("category"),
		Part:     q.Get("part"),
		Language: q.Get("language"),
		Search:   q.Get("q"),
	}
}

func (h *Handler) ListPapers(w http.ResponseWriter, r *http.Request) {
	h.listPapers(w, r, domain.ScopeActive)
}

// ListDeletedPapers serves the recycle bin.
func (h *Handler) ListDeletedPapers(w http.ResponseWriter, r *http.Request) {
	h.listPapers(w, r, domain.ScopeDeleted)
}

func (h *Handler) listPapers(w http.ResponseWriter, r *http.Request, scope domain.PaperScope) {
	filter := filterFromQuery(r)
	filter.Scope = scope

	page, err := h.paperUsecase.List(r.Context(), filter, queryInt(r, "page", 1))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, paperListResponse{Page: page, Criteria: filter})
}

func (h *Handler) GetPaper(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	paper, err := h.paperUsecase.Get(r.Context(), session.From(r.Context()), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, paper)
}

// DownloadPaper redirects to the stored file and counts the download.
func (h *Handler) DownloadPaper(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	url, err := h.paperUsecase.Download(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

// parsePaperForm reads the metadata fields and the optional file part of a
// multipart upload. The returned closer must be called once the file has
// been consumed.
func (h *Handler) parsePaperForm(w http.ResponseWriter, r *http.Request) (usecase.PaperInput, io.Reader, func(), error) {
	noop := func() {}
	// Leave room for the form fields around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return usecase.PaperInput{}, nil, noop, domain.Invalid("file", "exceeds the upload limit")
		}
		return usecase.PaperInput{}, nil, noop, domain.Invalid("body", "expected a multipart form")
	}

	in := usecase.PaperInput{
		Title:    r.FormValue("title"),
		Subject:  r.FormValue("subject"),
		Category: r.FormValue("category"),
		Part:     r.FormValue("part"),
		Language: r.FormValue("language"),
	}
	if y := strings.TrimSpace(r.FormValue("year")); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return usecase.PaperInput{}, nil, noop, domain.Invalid("year", "must be a number")
		}
		in.Year = year
	}

	cleanup := func() {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
	}

	f, _, err := r.FormFile("file")
	switch {
	case err == nil:
		return in, f, func() { f.Close(); cleanup() }, nil
	case errors.Is(err, http.ErrMissingFile):
		return in, nil, cleanup, nil
	default:
		cleanup()
		return usecase.PaperInput{}, nil, noop, domain.Invalid("file", "could not be read")
	}
}

func (h *Handler) CreatePaper(w http.ResponseWriter, r *http.Request) {
	in, file, done, err := h.parsePaperForm(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer done()

	paper, err := h.paperUsecase.Create(r.Context(), session.From(r.Context()), in, file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, paper)
}

func (h *Handler) UpdatePaper(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	in, file, done, err := h.parsePaperForm(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	defer done()

	paper, err := h.paperUsecase.Update(r.Context(), session.From(r.Context()), id, in, file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, paper)
}

func (h *Handler) DeletePaper(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.paperUsecase.Delete(r.Context(), session.From(r.Context()), id); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RestorePaper(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	paper, err := h.paperUsecase.Restore(r.Context(), session.From(r.Context()), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, paper)
}

func (h *Handler) PurgePaper(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}

	if err := h.paperUsecase.Purge(r.Context(), session.From(r.Context()), id); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
