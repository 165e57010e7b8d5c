package handlers

import (
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/scholarhub/apiserver/internal/services"
	"github.com/scholarhub/apiserver/internal/store"
	"github.com/scholarhub/apiserver/types"
	"go.uber.org/zap"
)

// ReviewHandler provides HTTP handlers for scholarship reviews.
type ReviewHandler struct {
	reviewService *services.ReviewService
	guards        *Guards
	logger        *zap.Logger
}

func NewReviewHandler(reviewService *services.ReviewService, guards *Guards, logger *zap.Logger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, guards: guards, logger: orNop(logger)}
}

// ReviewRouter registers review routes on the given router.
func ReviewRouter(r chi.Router, reviewService *services.ReviewService, guards *Guards, logger *zap.Logger) {
	handler := NewReviewHandler(reviewService, guards, logger)
	authed := r.With(guards.RequireAuth)

	r.Post("/add-review", handler.CreateReview)
	r.Get("/reviews", handler.ListReviews)
	r.Get("/reviews/{scholarshipId}", handler.ListScholarshipReviews)
	r.Get("/average-rating/{scholarshipId}", handler.AverageRating)
	authed.Get("/my-reviews/{email}", handler.ListMyReviews)
	authed.Patch("/review/{id}", handler.UpdateReview)
	authed.Delete("/review/{id}", handler.DeleteReview)
}

func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var review types.Review
	if !decodeJSON(w, r, &review) {
		return
	}

	created, err := h.reviewService.Create(r.Context(), review)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to create review")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, store.ReviewFilter{})
}

func (h *ReviewHandler) ListScholarshipReviews(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "scholarshipId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.list(w, r, store.ReviewFilter{ScholarshipID: id})
}

func (h *ReviewHandler) ListMyReviews(w http.ResponseWriter, r *http.Request) {
	if !requireSelf(w, r) {
		return
	}
	h.list(w, r, store.ReviewFilter{ReviewerEmail: pathEmail(r)})
}

func (h *ReviewHandler) list(w http.ResponseWriter, r *http.Request, filter store.ReviewFilter) {
	reviews, err := h.reviewService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to list reviews")
		return
	}
	if reviews == nil {
		reviews = []types.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

// AverageRating answers null when the scholarship has no reviews.
func (h *ReviewHandler) AverageRating(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "scholarshipId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	avg, err := h.reviewService.AverageRating(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to compute rating")
		return
	}

	resp := AverageRatingResponse{ScholarshipID: id}
	if !math.IsNaN(avg) {
		resp.AverageRating = &avg
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req ReviewUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.reviewService.Update(r.Context(), id, identityFrom(r).Email, req.Rating, req.Comment)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to update review")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteReview is open to the reviewer and to staff.
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	staff, err := h.guards.isStaff(r)
	if err != nil {
		writeServiceError(w, r, h.logger, err, "failed to load user")
		return
	}
	if err := h.reviewService.Delete(r.Context(), id, identityFrom(r).Email, staff); err != nil {
		writeServiceError(w, r, h.logger, err, "failed to delete review")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ReviewUpdateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type AverageRatingResponse struct {
	ScholarshipID uuid.UUID `json:"scholarshipId"`
	AverageRating *float64  `json:"averageRating"`
}
