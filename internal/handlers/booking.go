package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/heptatravel/apiserver/internal/services"
	"github.com/heptatravel/apiserver/internal/store"
	"github.com/heptatravel/apiserver/types"
	"github.com/sirupsen/logrus"
)

// BookingHandler serves bookings. All routes require authentication;
// users see only their own bookings unless they are admins.
type BookingHandler struct {
	bookings *services.BookingService
	log      *logrus.Logger
}

func NewBookingHandler(bookings *services.BookingService, log *logrus.Logger) *BookingHandler {
	if log == nil {
		log = logrus.New()
	}
	return &BookingHandler{bookings: bookings, log: log}
}

// BookingRouter registers booking routes.
func BookingRouter(r chi.Router, h *BookingHandler, authMiddleware *AuthMiddleware) {
	r.Use(authMiddleware.Authenticate)

	r.Post("/", h.Create)
	r.Get("/{bookingID}", h.Get)
	r.Post("/{bookingID}/cancel", h.Cancel)

	r.With(RequireOwnership(func(r *http.Request) string {
		return chi.URLParam(r, "userID")
	})).Get("/user/{userID}", h.ListByUser)

	r.With(RequireAdmin).Get("/", h.ListAll)
	r.With(RequireAdmin).Patch("/{bookingID}/status", h.UpdateStatus)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req BookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	startDate, errs := req.validate()
	if len(errs) > 0 {
		writeValidationFailed(w, errs)
		return
	}

	booking, err := h.bookings.Create(r.Context(), identity.ID, req.TourID, req.Participants, startDate)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Tour not found")
		case errors.Is(err, services.ErrTooManyParticipants):
			writeError(w, http.StatusBadRequest, "Participants exceed the tour group size")
		default:
			h.log.WithError(err).Error("booking creation failed")
			writeError(w, http.StatusInternalServerError, "Failed to create booking")
		}
		return
	}

	writeSuccess(w, http.StatusCreated, "Booking created successfully", map[string]any{"booking": booking})
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	booking, err := h.bookings.Get(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Booking not found")
			return
		}
		h.log.WithError(err).Error("booking fetch failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch booking")
		return
	}
	if booking.UserID != identity.ID && identity.Role != types.RoleAdmin {
		writeError(w, http.StatusForbidden, "You can only access your own resources")
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{"booking": booking})
}

func (h *BookingHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	bookings, total, err := h.bookings.ListByUser(r.Context(), chi.URLParam(r, "userID"), offset, limit)
	if err != nil {
		h.log.WithError(err).Error("booking list failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch bookings")
		return
	}

	writeSuccess(w, http.StatusOK, "", ListResponse{Items: bookings, Page: page, Limit: limit, Total: total})
}

func (h *BookingHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	bookings, total, err := h.bookings.ListAll(r.Context(), offset, limit)
	if err != nil {
		h.log.WithError(err).Error("booking list failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch bookings")
		return
	}

	writeSuccess(w, http.StatusOK, "", ListResponse{Items: bookings, Page: page, Limit: limit, Total: total})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	booking, err := h.bookings.Get(r.Context(), chi.URLParam(r, "bookingID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Booking not found")
			return
		}
		h.log.WithError(err).Error("booking fetch failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch booking")
		return
	}
	if booking.UserID != identity.ID && identity.Role != types.RoleAdmin {
		writeError(w, http.StatusForbidden, "You can only access your own resources")
		return
	}

	if err := h.bookings.Cancel(r.Context(), booking); err != nil {
		if errors.Is(err, services.ErrBookingNotCancellable) {
			writeError(w, http.StatusBadRequest, "Booking can no longer be cancelled")
			return
		}
		h.log.WithError(err).Error("booking cancellation failed")
		writeError(w, http.StatusInternalServerError, "Failed to cancel booking")
		return
	}

	writeSuccess(w, http.StatusOK, "Booking cancelled successfully", nil)
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req BookingStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	switch req.Status {
	case types.BookingPending, types.BookingConfirmed, types.BookingCancelled, types.BookingCompleted:
	default:
		writeValidationFailed(w, []FieldError{{Field: "status", Message: "Invalid booking status"}})
		return
	}

	if err := h.bookings.UpdateStatus(r.Context(), chi.URLParam(r, "bookingID"), req.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Booking not found")
			return
		}
		h.log.WithError(err).Error("booking status update failed")
		writeError(w, http.StatusInternalServerError, "Failed to update booking status")
		return
	}

	writeSuccess(w, http.StatusOK, "Booking status updated successfully", nil)
}

type BookingRequest struct {
	TourID       string `json:"tourId"`
	Participants int    `json:"participants"`
	StartDate    string `json:"startDate"`
}

func (req BookingRequest) validate() (time.Time, []FieldError) {
	var errs []FieldError

	if req.TourID == "" {
		errs = append(errs, FieldError{Field: "tourId", Message: "Tour ID is required"})
	}
	if req.Participants < 1 {
		errs = append(errs, FieldError{Field: "participants", Message: "At least one participant is required"})
	}

	var startDate time.Time
	if req.StartDate == "" {
		errs = append(errs, FieldError{Field: "startDate", Message: "Start date is required"})
	} else {
		parsed, err := time.Parse("2006-01-02", req.StartDate)
		switch {
		case err != nil:
			errs = append(errs, FieldError{Field: "startDate", Message: "Start date must be in YYYY-MM-DD format"})
		case parsed.Before(time.Now().Truncate(24 * time.Hour)):
			errs = append(errs, FieldError{Field: "startDate", Message: "Start date cannot be in the past"})
		default:
			startDate = parsed
		}
	}

	return startDate, errs
}

type BookingStatusRequest struct {
	Status string `json:"status"`
}
