package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/scholarhub/apiserver/internal/auth"
	"github.com/scholarhub/apiserver/internal/services"
	"github.com/scholarhub/apiserver/types"
	"go.uber.org/zap"
)

const (
	maxImageBytes      = 5 << 20
	maxMultipartMemory = 8 << 20
	formFieldImage     = "image"
)

// ScholarshipHandler provides HTTP handlers for scholarships.
type ScholarshipHandler struct {
	scholarshipService *services.ScholarshipService
	logger             *zap.Logger
}

func NewScholarshipHandler(scholarshipService *services.ScholarshipService, logger *zap.Logger) *ScholarshipHandler {
	return &ScholarshipHandler{scholarshipService: scholarshipService, logger: orNop(logger)}
}

// ScholarshipRouter registers scholarship routes on the given router.
func ScholarshipRouter(r chi.Router, scholarshipService *services.ScholarshipService, guards *Guards, logger *zap.Logger) {
	handler := NewScholarshipHandler(scholarshipService, logger)
	staff := r.With(guards.RequireAuth, guards.RequireRole(auth.Staff))

	r.Get("/scholarships", handler.ListScholarships)
	r.Get("/top-scholarships", handler.TopScholarships)
	r.Get("/scholarship/{id}", handler.GetScholarship)
	staff.Post("/add-scholarship", handler.CreateScholarship)
	staff.Put("/scholarship/update/{id}", handler.UpdateScholarship)
	staff.Put("/scholarship/{id}/image", handler.UploadImage)
	staff.Delete("/scholarship/{id}", handler.DeleteScholarship)
}

func (h *ScholarshipHandler) ListScholarships(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.scholarshipService.List(r.Context(), r.URL.Query().Get("search"), offset, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list scholarships")
		return
	}
	if items == nil {
		items = []types.Scholarship{}
	}

	writeJSON(w, http.StatusOK, ListResponse[types.Scholarship]{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *ScholarshipHandler) TopScholarships(w http.ResponseWriter, r *http.Request) {
	items, err := h.scholarshipService.Top(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list scholarships")
		return
	}
	if items == nil {
		items = []types.Scholarship{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ScholarshipHandler) GetScholarship(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scholarship, err := h.scholarshipService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to fetch scholarship")
		return
	}
	writeJSON(w, http.StatusOK, scholarship)
}

func (h *ScholarshipHandler) CreateScholarship(w http.ResponseWriter, r *http.Request) {
	var scholarship types.Scholarship
	if !decodeJSON(w, r, &scholarship) {
		return
	}

	created, err := h.scholarshipService.Create(r.Context(), scholarship, identityFrom(r).Email)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create scholarship")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ScholarshipHandler) UpdateScholarship(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var scholarship types.Scholarship
	if !decodeJSON(w, r, &scholarship) {
		return
	}
	scholarship.ID = id

	updated, err := h.scholarshipService.Update(r.Context(), scholarship)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to update scholarship")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// UploadImage replaces the university image from a multipart "image" field.
func (h *ScholarshipHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+maxMultipartMemory)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		writeError(w, http.StatusBadRequest, "uploaded file too large")
		return
	}
	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))

	updated, err := h.scholarshipService.UploadImage(r.Context(), id, header.Filename, contentType, file, header.Size)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to upload image")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ScholarshipHandler) DeleteScholarship(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.scholarshipService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, err, "failed to delete scholarship")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
