package services

import (
	"context"
	"strings"

	"github.com/heptatravel/apiserver/types"
)

// BlogRepository defines persistence operations for blog posts.
type BlogRepository interface {
	Get(ctx context.Context, id string) (types.Blog, error)
	GetBySlug(ctx context.Context, slug string) (types.Blog, error)
	ListPublished(ctx context.Context, offset, limit int) ([]types.Blog, int, error)
	Create(ctx context.Context, blog types.Blog) (types.Blog, error)
	Update(ctx context.Context, blog types.Blog) (types.Blog, error)
	Delete(ctx context.Context, id string) error
}

// BlogService encapsulates blog use-cases.
type BlogService struct {
	repo BlogRepository
}

func NewBlogService(repo BlogRepository) *BlogService {
	return &BlogService{repo: repo}
}

func (s *BlogService) Get(ctx context.Context, id string) (types.Blog, error) {
	return s.repo.Get(ctx, id)
}

func (s *BlogService) GetBySlug(ctx context.Context, slug string) (types.Blog, error) {
	return s.repo.GetBySlug(ctx, slug)
}

func (s *BlogService) ListPublished(ctx context.Context, offset, limit int) ([]types.Blog, int, error) {
	return s.repo.ListPublished(ctx, offset, limit)
}

// Create derives the slug from the title.
func (s *BlogService) Create(ctx context.Context, blog types.Blog) (types.Blog, error) {
	blog.Slug = Slugify(blog.Title)
	return s.repo.Create(ctx, blog)
}

func (s *BlogService) Update(ctx context.Context, blog types.Blog) (types.Blog, error) {
	return s.repo.Update(ctx, blog)
}

func (s *BlogService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Slugify lowercases the title and replaces runs of non-alphanumerics
// with single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
