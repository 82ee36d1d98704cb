package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/heptatravel/apiserver/types"
)

// BlogRepository handles persistence for blog posts.
type BlogRepository struct {
	db *sql.DB
}

func NewBlogRepository(db *sql.DB) *BlogRepository {
	return &BlogRepository{db: db}
}

func (r *BlogRepository) GetBySlug(ctx context.Context, slug string) (types.Blog, error) {
	const query = `
		SELECT id, title, slug, excerpt, content, author_id, published, created_at, updated_at
		FROM blogs
		WHERE slug = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, slug))
}

func (r *BlogRepository) Get(ctx context.Context, id string) (types.Blog, error) {
	const query = `
		SELECT id, title, slug, excerpt, content, author_id, published, created_at, updated_at
		FROM blogs
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// ListPublished returns published posts, newest first.
func (r *BlogRepository) ListPublished(ctx context.Context, offset, limit int) ([]types.Blog, int, error) {
	const countQuery = `SELECT COUNT(1) FROM blogs WHERE published`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT id, title, slug, excerpt, content, author_id, published, created_at, updated_at
		FROM blogs
		WHERE published
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	blogs := []types.Blog{}
	for rows.Next() {
		var blog types.Blog
		if err := rows.Scan(
			&blog.ID,
			&blog.Title,
			&blog.Slug,
			&blog.Excerpt,
			&blog.Content,
			&blog.AuthorID,
			&blog.Published,
			&blog.CreatedAt,
			&blog.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		blogs = append(blogs, blog)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return blogs, total, nil
}

func (r *BlogRepository) Create(ctx context.Context, blog types.Blog) (types.Blog, error) {
	now := time.Now()
	blog.ID = uuid.NewString()
	blog.CreatedAt = now
	blog.UpdatedAt = now

	const query = `
		INSERT INTO blogs (id, title, slug, excerpt, content, author_id, published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		blog.ID,
		blog.Title,
		blog.Slug,
		blog.Excerpt,
		blog.Content,
		blog.AuthorID,
		blog.Published,
		blog.CreatedAt,
		blog.UpdatedAt,
	)
	if err != nil {
		return types.Blog{}, err
	}
	return blog, nil
}

func (r *BlogRepository) Update(ctx context.Context, blog types.Blog) (types.Blog, error) {
	blog.UpdatedAt = time.Now()

	const query = `
		UPDATE blogs
		SET title = $1,
			excerpt = $2,
			content = $3,
			published = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		blog.Title,
		blog.Excerpt,
		blog.Content,
		blog.Published,
		blog.UpdatedAt,
		blog.ID,
	)
	if err != nil {
		return types.Blog{}, err
	}
	if err := requireAffected(result); err != nil {
		return types.Blog{}, err
	}
	return blog, nil
}

func (r *BlogRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM blogs WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *BlogRepository) scanOne(row *sql.Row) (types.Blog, error) {
	var blog types.Blog
	err := row.Scan(
		&blog.ID,
		&blog.Title,
		&blog.Slug,
		&blog.Excerpt,
		&blog.Content,
		&blog.AuthorID,
		&blog.Published,
		&blog.CreatedAt,
		&blog.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Blog{}, ErrNotFound
		}
		return types.Blog{}, err
	}
	return blog, nil
}
