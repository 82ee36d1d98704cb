package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/heptatravel/apiserver/internal/services"
	"github.com/heptatravel/apiserver/internal/store"
	"github.com/heptatravel/apiserver/types"
)

// fakeBlogRepo is an in-memory services.BlogRepository.
type fakeBlogRepo struct {
	blogs  map[string]types.Blog
	nextID int
}

func newFakeBlogRepo() *fakeBlogRepo {
	return &fakeBlogRepo{blogs: make(map[string]types.Blog)}
}

func (r *fakeBlogRepo) Get(_ context.Context, id string) (types.Blog, error) {
	if b, ok := r.blogs[id]; ok {
		return b, nil
	}
	return types.Blog{}, store.ErrNotFound
}

func (r *fakeBlogRepo) GetBySlug(_ context.Context, slug string) (types.Blog, error) {
	for _, b := range r.blogs {
		if b.Slug == slug {
			return b, nil
		}
	}
	return types.Blog{}, store.ErrNotFound
}

func (r *fakeBlogRepo) ListPublished(_ context.Context, _, _ int) ([]types.Blog, int, error) {
	var out []types.Blog
	for _, b := range r.blogs {
		if b.Published {
			out = append(out, b)
		}
	}
	return out, len(out), nil
}

func (r *fakeBlogRepo) Create(_ context.Context, blog types.Blog) (types.Blog, error) {
	r.nextID++
	blog.ID = fmt.Sprintf("blog-%d", r.nextID)
	r.blogs[blog.ID] = blog
	return blog, nil
}

func (r *fakeBlogRepo) Update(_ context.Context, blog types.Blog) (types.Blog, error) {
	if _, ok := r.blogs[blog.ID]; !ok {
		return types.Blog{}, store.ErrNotFound
	}
	r.blogs[blog.ID] = blog
	return blog, nil
}

func (r *fakeBlogRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.blogs[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.blogs, id)
	return nil
}

func TestBlogDraftVisibility(t *testing.T) {
	userRepo, codec, authMiddleware := newMiddlewareEnv(t)
	admin := seedVerifiedUser(t, userRepo, types.RoleAdmin)
	reader := seedVerifiedUser(t, userRepo, types.RoleUser)

	blogRepo := newFakeBlogRepo()
	blogService := services.NewBlogService(blogRepo)
	handler := NewBlogHandler(blogService, nil)

	author := seedVerifiedUser(t, userRepo, types.RoleGuide)
	if _, err := blogRepo.Create(context.Background(), types.Blog{
		Title: "Draft Itinerary", Slug: "draft-itinerary", AuthorID: author.ID, Published: false,
	}); err != nil {
		t.Fatalf("seed draft: %v", err)
	}
	if _, err := blogRepo.Create(context.Background(), types.Blog{
		Title: "Ten Hidden Beaches", Slug: "ten-hidden-beaches", AuthorID: author.ID, Published: true,
	}); err != nil {
		t.Fatalf("seed post: %v", err)
	}

	router := chi.NewRouter()
	router.Route("/api/blogs", func(r chi.Router) {
		BlogRouter(r, handler, authMiddleware)
	})

	do := func(slug string, user *types.User) int {
		req := httptest.NewRequest(http.MethodGet, "/api/blogs/"+slug, nil)
		if user != nil {
			access, err := codec.MintAccess(user.ID, user.Email, string(user.Role))
			if err != nil {
				t.Fatalf("MintAccess: %v", err)
			}
			req.Header.Set("Authorization", "Bearer "+access)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := do("ten-hidden-beaches", nil); got != http.StatusOK {
		t.Errorf("published post anonymous status = %d, want 200", got)
	}
	if got := do("draft-itinerary", nil); got != http.StatusNotFound {
		t.Errorf("draft anonymous status = %d, want 404", got)
	}
	if got := do("draft-itinerary", &reader); got != http.StatusNotFound {
		t.Errorf("draft non-author status = %d, want 404", got)
	}
	if got := do("draft-itinerary", &author); got != http.StatusOK {
		t.Errorf("draft author status = %d, want 200", got)
	}
	if got := do("draft-itinerary", &admin); got != http.StatusOK {
		t.Errorf("draft admin status = %d, want 200", got)
	}
	if got := do("no-such-slug", nil); got != http.StatusNotFound {
		t.Errorf("missing slug status = %d, want 404", got)
	}
}
