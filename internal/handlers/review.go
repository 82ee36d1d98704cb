package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/heptatravel/apiserver/internal/services"
	"github.com/heptatravel/apiserver/internal/store"
	"github.com/heptatravel/apiserver/types"
	"github.com/sirupsen/logrus"
)

// ReviewHandler serves tour reviews. Routes are registered under
// /tours/{tourID}/reviews by TourRouter.
type ReviewHandler struct {
	reviews *services.ReviewService
	log     *logrus.Logger
}

func NewReviewHandler(reviews *services.ReviewService, log *logrus.Logger) *ReviewHandler {
	if log == nil {
		log = logrus.New()
	}
	return &ReviewHandler{reviews: reviews, log: log}
}

func (h *ReviewHandler) ListByTour(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	reviews, total, err := h.reviews.ListByTour(r.Context(), chi.URLParam(r, "tourID"), offset, limit)
	if err != nil {
		h.log.WithError(err).Error("review list failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch reviews")
		return
	}

	writeSuccess(w, http.StatusOK, "", ListResponse{Items: reviews, Page: page, Limit: limit, Total: total})
}

// Update edits an existing review. Only the author or an admin may
// edit.
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	review, err := h.reviews.Get(r.Context(), chi.URLParam(r, "reviewID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Review not found")
			return
		}
		h.log.WithError(err).Error("review fetch failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch review")
		return
	}
	if review.UserID != identity.ID && identity.Role != types.RoleAdmin {
		writeError(w, http.StatusForbidden, "You can only access your own resources")
		return
	}

	var req ReviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationFailed(w, errs)
		return
	}

	review.Rating = req.Rating
	review.Review = strings.TrimSpace(req.Review)

	updated, err := h.reviews.Update(r.Context(), review)
	if err != nil {
		h.log.WithError(err).Error("review update failed")
		writeError(w, http.StatusInternalServerError, "Failed to update review")
		return
	}

	writeSuccess(w, http.StatusOK, "Review updated successfully", map[string]any{"review": updated})
}

// Delete removes a review. Only the author or an admin may delete.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	review, err := h.reviews.Get(r.Context(), chi.URLParam(r, "reviewID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Review not found")
			return
		}
		h.log.WithError(err).Error("review fetch failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch review")
		return
	}
	if review.UserID != identity.ID && identity.Role != types.RoleAdmin {
		writeError(w, http.StatusForbidden, "You can only access your own resources")
		return
	}

	if err := h.reviews.Delete(r.Context(), review.ID); err != nil {
		h.log.WithError(err).Error("review deletion failed")
		writeError(w, http.StatusInternalServerError, "Failed to delete review")
		return
	}

	writeSuccess(w, http.StatusOK, "Review deleted successfully", nil)
}

func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req ReviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationFailed(w, errs)
		return
	}

	review, err := h.reviews.Create(r.Context(), types.Review{
		TourID: chi.URLParam(r, "tourID"),
		UserID: identity.ID,
		Rating: req.Rating,
		Review: strings.TrimSpace(req.Review),
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Tour not found")
		case errors.Is(err, services.ErrDuplicateReview):
			writeError(w, http.StatusConflict, "You have already reviewed this tour")
		default:
			h.log.WithError(err).Error("review creation failed")
			writeError(w, http.StatusInternalServerError, "Failed to create review")
		}
		return
	}

	writeSuccess(w, http.StatusCreated, "Review created successfully", map[string]any{"review": review})
}

type ReviewRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

func (req ReviewRequest) validate() []FieldError {
	var errs []FieldError
	if req.Rating < 1 || req.Rating > 5 {
		errs = append(errs, FieldError{Field: "rating", Message: "Rating must be between 1 and 5"})
	}
	if text := strings.TrimSpace(req.Review); len(text) < 10 || len(text) > 1000 {
		errs = append(errs, FieldError{Field: "review", Message: "Review must be between 10 and 1000 characters"})
	}
	return errs
}
