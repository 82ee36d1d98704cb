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

// BlogHandler serves editorial posts. Reading published posts is
// public; authoring is admin-only.
type BlogHandler struct {
	blogs *services.BlogService
	log   *logrus.Logger
}

func NewBlogHandler(blogs *services.BlogService, log *logrus.Logger) *BlogHandler {
	if log == nil {
		log = logrus.New()
	}
	return &BlogHandler{blogs: blogs, log: log}
}

// BlogRouter registers blog routes.
func BlogRouter(r chi.Router, h *BlogHandler, authMiddleware *AuthMiddleware) {
	r.Get("/", h.ListPublished)
	r.With(authMiddleware.OptionalAuthenticate).Get("/{slug}", h.GetBySlug)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate, RequireAdmin)
		r.Post("/", h.Create)
		r.Patch("/id/{blogID}", h.Update)
		r.Delete("/id/{blogID}", h.Delete)
	})
}

func (h *BlogHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid pagination parameters")
		return
	}

	blogs, total, err := h.blogs.ListPublished(r.Context(), offset, limit)
	if err != nil {
		h.log.WithError(err).Error("blog list failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch blog posts")
		return
	}

	writeSuccess(w, http.StatusOK, "", ListResponse{Items: blogs, Page: page, Limit: limit, Total: total})
}

// GetBySlug returns a post by slug. Unpublished posts are visible only
// to admins and their author; everyone else sees not-found, so drafts
// cannot be enumerated by guessing slugs.
func (h *BlogHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	blog, err := h.blogs.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Blog post not found")
			return
		}
		h.log.WithError(err).Error("blog fetch failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch blog post")
		return
	}

	if !blog.Published {
		identity, ok := identityFromContext(r.Context())
		if !ok || (identity.Role != types.RoleAdmin && identity.ID != blog.AuthorID) {
			writeError(w, http.StatusNotFound, "Blog post not found")
			return
		}
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{"blog": blog})
}

func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req BlogRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationFailed(w, errs)
		return
	}

	blog, err := h.blogs.Create(r.Context(), types.Blog{
		Title:     strings.TrimSpace(req.Title),
		Excerpt:   strings.TrimSpace(req.Excerpt),
		Content:   req.Content,
		AuthorID:  identity.ID,
		Published: req.Published,
	})
	if err != nil {
		h.log.WithError(err).Error("blog creation failed")
		writeError(w, http.StatusInternalServerError, "Failed to create blog post")
		return
	}

	writeSuccess(w, http.StatusCreated, "Blog post created successfully", map[string]any{"blog": blog})
}

func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, err := h.blogs.Get(r.Context(), chi.URLParam(r, "blogID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Blog post not found")
			return
		}
		h.log.WithError(err).Error("blog fetch failed")
		writeError(w, http.StatusInternalServerError, "Failed to fetch blog post")
		return
	}

	var req BlogRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.validate(); len(errs) > 0 {
		writeValidationFailed(w, errs)
		return
	}

	existing.Title = strings.TrimSpace(req.Title)
	existing.Excerpt = strings.TrimSpace(req.Excerpt)
	existing.Content = req.Content
	existing.Published = req.Published

	updated, err := h.blogs.Update(r.Context(), existing)
	if err != nil {
		h.log.WithError(err).Error("blog update failed")
		writeError(w, http.StatusInternalServerError, "Failed to update blog post")
		return
	}

	writeSuccess(w, http.StatusOK, "Blog post updated successfully", map[string]any{"blog": updated})
}

func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.blogs.Delete(r.Context(), chi.URLParam(r, "blogID")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Blog post not found")
			return
		}
		h.log.WithError(err).Error("blog deletion failed")
		writeError(w, http.StatusInternalServerError, "Failed to delete blog post")
		return
	}
	writeSuccess(w, http.StatusOK, "Blog post deleted successfully", nil)
}

type BlogRequest struct {
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt"`
	Content   string `json:"content"`
	Published bool   `json:"published"`
}

func (req BlogRequest) validate() []FieldError {
	var errs []FieldError
	title := strings.TrimSpace(req.Title)
	if title == "" || len(title) > 200 {
		errs = append(errs, FieldError{Field: "title", Message: "Title must be between 1 and 200 characters"})
	}
	if strings.TrimSpace(req.Content) == "" {
		errs = append(errs, FieldError{Field: "content", Message: "Content is required"})
	}
	return errs
}
