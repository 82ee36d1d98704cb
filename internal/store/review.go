package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/heptatravel/apiserver/types"
)

// ReviewRepository handles persistence for tour reviews.
type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Get(ctx context.Context, id string) (types.Review, error) {
	const query = `
		SELECT id, tour_id, user_id, rating, review, created_at, updated_at
		FROM reviews
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByTourAndUser enforces the one-review-per-user-per-tour rule.
func (r *ReviewRepository) GetByTourAndUser(ctx context.Context, tourID, userID string) (types.Review, error) {
	const query = `
		SELECT id, tour_id, user_id, rating, review, created_at, updated_at
		FROM reviews
		WHERE tour_id = $1 AND user_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tourID, userID))
}

func (r *ReviewRepository) ListByTour(ctx context.Context, tourID string, offset, limit int) ([]types.Review, int, error) {
	const countQuery = `SELECT COUNT(1) FROM reviews WHERE tour_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, tourID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT id, tour_id, user_id, rating, review, created_at, updated_at
		FROM reviews
		WHERE tour_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, tourID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reviews := []types.Review{}
	for rows.Next() {
		var review types.Review
		if err := rows.Scan(
			&review.ID,
			&review.TourID,
			&review.UserID,
			&review.Rating,
			&review.Review,
			&review.CreatedAt,
			&review.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

func (r *ReviewRepository) Create(ctx context.Context, review types.Review) (types.Review, error) {
	now := time.Now()
	review.ID = uuid.NewString()
	review.CreatedAt = now
	review.UpdatedAt = now

	const query = `
		INSERT INTO reviews (id, tour_id, user_id, rating, review, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		review.ID,
		review.TourID,
		review.UserID,
		review.Rating,
		review.Review,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		return types.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) Update(ctx context.Context, review types.Review) (types.Review, error) {
	review.UpdatedAt = time.Now()

	const query = `
		UPDATE reviews
		SET rating = $1,
			review = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, review.Rating, review.Review, review.UpdatedAt, review.ID)
	if err != nil {
		return types.Review{}, err
	}
	if err := requireAffected(result); err != nil {
		return types.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM reviews WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *ReviewRepository) scanOne(row *sql.Row) (types.Review, error) {
	var review types.Review
	err := row.Scan(
		&review.ID,
		&review.TourID,
		&review.UserID,
		&review.Rating,
		&review.Review,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Review{}, ErrNotFound
		}
		return types.Review{}, err
	}
	return review, nil
}
