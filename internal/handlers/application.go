package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/scholarhub/apiserver/internal/auth"
	"github.com/scholarhub/apiserver/internal/metrics"
	"github.com/scholarhub/apiserver/internal/services"
	"github.com/scholarhub/apiserver/internal/store"
	"github.com/scholarhub/apiserver/types"
	"go.uber.org/zap"
)

// ApplicationHandler provides HTTP handlers for scholarship applications.
type ApplicationHandler struct {
	applicationService *services.ApplicationService
	guards             *Guards
	logger             *zap.Logger
}

func NewApplicationHandler(applicationService *services.ApplicationService, guards *Guards, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
		guards:             guards,
		logger:             orNop(logger),
	}
}

// ApplicationRouter registers application routes on the given router.
func ApplicationRouter(r chi.Router, applicationService *services.ApplicationService, guards *Guards, logger *zap.Logger) {
	handler := NewApplicationHandler(applicationService, guards, logger)
	authed := r.With(guards.RequireAuth)
	staff := r.With(guards.RequireAuth, guards.RequireRole(auth.Staff))

	r.Post("/add-application", handler.CreateApplication)
	r.Get("/all-applications", handler.ListApplications)
	authed.Get("/my-applications/{email}", handler.ListMyApplications)
	authed.Get("/application/{id}", handler.GetApplication)
	authed.Patch("/applicant-info/{id}", handler.UpdateApplicantInfo)
	authed.Delete("/application/{id}", handler.CancelApplication)
	staff.Patch("/application-status/{id}", handler.UpdateStatus)
	staff.Patch("/add-feedback/{id}", handler.AddFeedback)
}

// CreateApplication submits an application. Any status in the body is
// ignored; new applications are always pending.
func (h *ApplicationHandler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var app types.Application
	if !decodeJSON(w, r, &app) {
		return
	}

	created, err := h.applicationService.Create(r.Context(), app)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create application")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListApplications supports ?date=YYYY-MM-DD and ?sort=applied|deadline.
func (h *ApplicationHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var day time.Time
	if raw := strings.TrimSpace(query.Get("date")); raw != "" {
		parsed, err := h.applicationService.ParseDay(raw)
		if err != nil {
			writeServiceError(w, r, h.logger, err, "failed to list applications")
			return
		}
		day = parsed
	}

	sort := store.SortByCreated
	switch strings.ToLower(strings.TrimSpace(query.Get("sort"))) {
	case "", string(store.SortByCreated):
	case string(store.SortByDeadline):
		sort = store.SortByDeadline
	default:
		writeError(w, http.StatusBadRequest, "invalid sort")
		return
	}

	apps, err := h.applicationService.List(r.Context(), day, sort)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list applications")
		return
	}
	writeApplications(w, apps)
}

func (h *ApplicationHandler) ListMyApplications(w http.ResponseWriter, r *http.Request) {
	if !requireSelf(w, r) {
		return
	}

	apps, err := h.applicationService.ListByApplicant(r.Context(), pathEmail(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list applications")
		return
	}
	writeApplications(w, apps)
}

// GetApplication is visible to the applicant and to staff.
func (h *ApplicationHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	app, err := h.applicationService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to fetch application")
		return
	}
	if !sameEmail(app.ApplicantEmail, identityFrom(r).Email) {
		staff, err := h.guards.isStaff(r)
		if err != nil {
			writeServiceError(w, r, h.logger, err, "failed to load user")
			return
		}
		if !staff {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) UpdateApplicantInfo(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var info types.ApplicantInfo
	if !decodeJSON(w, r, &info) {
		return
	}

	updated, err := h.applicationService.UpdateApplicantInfo(r.Context(), id, identityFrom(r).Email, info)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to update application")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// CancelApplication lets the applicant withdraw while still pending.
func (h *ApplicationHandler) CancelApplication(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.applicationService.Cancel(r.Context(), id, identityFrom(r).Email); err != nil {
		writeServiceError(w, r, h.logger, err, "failed to cancel application")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.applicationService.Transition(r.Context(), id, req.Status, identityFrom(r).Email)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to update status")
		return
	}
	metrics.RecordTransition(string(updated.Status))
	writeJSON(w, http.StatusOK, updated)
}

// AddFeedback upserts reviewer feedback. Status is left as it is.
func (h *ApplicationHandler) AddFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req FeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.applicationService.AddFeedback(r.Context(), id, req.Feedback, identityFrom(r).Email)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to save feedback")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func writeApplications(w http.ResponseWriter, apps []types.Application) {
	if apps == nil {
		apps = []types.Application{}
	}
	writeJSON(w, http.StatusOK, apps)
}

type StatusRequest struct {
	Status string `json:"status"`
}

type FeedbackRequest struct {
	Feedback string `json:"feedback"`
}
