package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/heptatravel/apiserver/internal/media"
	"github.com/heptatravel/apiserver/internal/services"
	"github.com/heptatravel/apiserver/internal/store"
	"github.com/heptatravel/apiserver/types"
	"github.com/sirupsen/logrus"
)

const maxCoverUploadBytes = 10 << 20

// TourHandler serves the tour catalog. Listing and reading are public;
// writes require the guide or admin role.
type TourHandler struct {
	tours   *services.TourService
	reviews *services.ReviewService
	media   *media.Store
	log     *logrus.Logger
}

func NewTourHandler(tours *services.TourService, reviews *services.ReviewService, mediaStore *media.Store, log *logrus.Logger) *TourHandler {
	if log == nil {
		log = logrus.New()
	}
	return &TourHandler{tours: tours, reviews: reviews, media: mediaStore, log: log}
}

// TourRouter registers tour and nested review routes.
func TourRouter(r chi.Router, h *TourHandler, reviewHandler *ReviewHandler, authMiddleware *AuthMiddleware) {
	r.Get("/", h.List)
	r.Get("/{tourID}", h.Get)
	r.Get("/{tourID}/reviews", reviewHandler.ListByTour)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Post("/{tourID}/reviews", reviewHandler.Create)
		r.Patch("/{tourID}/reviews/{reviewID}", reviewHandler.Update)
		r.Delete("/{tourID}/reviews/{reviewID}", reviewHandler.Delete)
	})

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate, RequireGuide)
		r.Post("/", h.Create)
		r.Patch("/{tourID}", h.Update)
		r.Delete("/{tourID}", h.Delete)
		r.Post("/{tourID}/cover", h.UploadCover)
	})
}

func (h *TourHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	filter := store.TourFilter{
		Difficulty: strings.TrimSpace(r.URL.Query().Get("difficulty")),
		Category:   strings.TrimSpace(r.URL.Query().Get("category")),
	}

	tours, total, err := h.tours.List(r.Context(), filter, offset, limit)
	if err != nil {
		h.log.WithError(err).Error("tour list failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch tours")
		return
	}

	writeSuccess(w, http.StatusOK, "", ListResponse{Items: tours, Page: page, Limit: limit, Total: total})
}

func (h *TourHandler) Get(w http.ResponseWriter, r *http.Request) {
	tour, err := h.tours.Get(r.Context(), chi.URLParam(r, "tourID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tour not found")
			return
		}
		h.log.WithError(err).Error("tour fetch failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch tour")
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"tour": tour})
}

func (h *TourHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TourRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tour, errs := req.validate()
	if len(errs) > 0 {
		writeValidationFailed(w, errs)
		return
	}

	created, err := h.tours.Create(r.Context(), tour)
	if err != nil {
		h.log.WithError(err).Error("tour creation failed")
		writeError(w, http.StatusInternalServerError, "Failed to create tour")
		return
	}
	writeSuccess(w, http.StatusCreated, "Tour created successfully", map[string]any{"tour": created})
}

func (h *TourHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.tours.Get(r.Context(), chi.URLParam(r, "tourID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tour not found")
			return
		}
		h.log.WithError(err).Error("tour fetch failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch tour")
		return
	}

	var req TourRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tour, errs := req.validate()
	if len(errs) > 0 {
		writeValidationFailed(w, errs)
		return
	}
	tour.ID = existing.ID
	tour.ImageCover = existing.ImageCover

	updated, err := h.tours.Update(r.Context(), tour)
	if err != nil {
		h.log.WithError(err).Error("tour update failed")
		writeError(w, http.StatusInternalServerError, "Failed to update tour")
		return
	}
	writeSuccess(w, http.StatusOK, "Tour updated successfully", map[string]any{"tour": updated})
}

func (h *TourHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tours.Delete(r.Context(), chi.URLParam(r, "tourID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tour not found")
			return
		}
		h.log.WithError(err).Error("tour deletion failed")
		writeError(w, http.StatusInternalServerError, "Failed to delete tour")
		return
	}
	writeSuccess(w, http.StatusOK, "Tour deleted successfully", nil)
}

// UploadCover accepts a multipart "cover" file, stores it in the object
// store, and records the key on the tour.
func (h *TourHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		writeError(w, http.StatusServiceUnavailable, "Media storage is not configured")
		return
	}

	tourID := chi.URLParam(r, "tourID")
	if _, err := h.tours.Get(r.Context(), tourID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tour not found")
			return
		}
		h.log.WithError(err).Error("tour fetch failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch tour")
		return
	}

	if err := r.ParseMultipartForm(maxCoverUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("cover")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Cover image file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "Cover must be an image")
		return
	}

	key := media.TourCoverKey(tourID, header.Filename)
	if err := h.media.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		h.log.WithError(err).Error("cover upload failed")
		writeError(w, http.StatusInternalServerError, "Failed to store cover image")
		return
	}
	if err := h.tours.SetImageCover(r.Context(), tourID, key); err != nil {
		h.log.WithError(err).Error("cover record failed")
		writeError(w, http.StatusInternalServerError, "Failed to update tour cover")
		return
	}

	writeSuccess(w, http.StatusOK, "Cover image uploaded successfully", map[string]any{"imageCover": key})
}

type TourRequest struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	ShortDescription string  `json:"shortDescription"`
	Price            float64 `json:"price"`
	Duration         int     `json:"duration"`
	MaxGroupSize     int     `json:"maxGroupSize"`
	Difficulty       string  `json:"difficulty"`
	Category         string  `json:"category"`
}

func (req TourRequest) validate() (types.Tour, []FieldError) {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 200 {
		errs = append(errs, FieldError{Field: "name", Message: "Name must be between 1 and 200 characters"})
	}
	if strings.TrimSpace(req.Description) == "" {
		errs = append(errs, FieldError{Field: "description", Message: "Description is required"})
	}
	if req.Price <= 0 {
		errs = append(errs, FieldError{Field: "price", Message: "Price must be greater than zero"})
	}
	if req.Duration <= 0 {
		errs = append(errs, FieldError{Field: "duration", Message: "Duration must be at least 1 day"})
	}
	if req.MaxGroupSize <= 0 {
		errs = append(errs, FieldError{Field: "maxGroupSize", Message: "Max group size must be at least 1"})
	}
	switch req.Difficulty {
	case types.DifficultyEasy, types.DifficultyMedium, types.DifficultyDifficult:
	default:
		errs = append(errs, FieldError{Field: "difficulty", Message: "Difficulty must be easy, medium, or difficult"})
	}

	return types.Tour{
		Name:             name,
		Description:      strings.TrimSpace(req.Description),
		ShortDescription: strings.TrimSpace(req.ShortDescription),
		Price:            req.Price,
		Duration:         req.Duration,
		MaxGroupSize:     req.MaxGroupSize,
		Difficulty:       req.Difficulty,
		Category:         strings.TrimSpace(req.Category),
	}, errs
}
