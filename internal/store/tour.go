package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/heptatravel/apiserver/types"
)

// TourRepository handles persistence for tours.
type TourRepository struct {
	db *sql.DB
}

func NewTourRepository(db *sql.DB) *TourRepository {
	return &TourRepository{db: db}
}

// TourFilter narrows List results. Zero values mean no filtering.
type TourFilter struct {
	Difficulty string
	Category   string
}

func (r *TourRepository) List(ctx context.Context, filter TourFilter, offset, limit int) ([]types.Tour, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	where := ""
	args := []any{}
	if filter.Difficulty != "" {
		args = append(args, filter.Difficulty)
		where = fmt.Sprintf("WHERE difficulty = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		if where == "" {
			where = fmt.Sprintf("WHERE category = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND category = $%d", len(args))
		}
	}

	countQuery := `SELECT COUNT(1) FROM tours ` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`
		SELECT id, name, description, short_description, price, duration,
			max_group_size, difficulty, category, image_cover, created_at, updated_at
		FROM tours
		%s
		ORDER BY created_at DESC
		OFFSET $%d LIMIT $%d`, where, len(args)+1, len(args)+2)
	args = append(args, offset, limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tours := make([]types.Tour, 0, limit)
	for rows.Next() {
		var tour types.Tour
		if err := rows.Scan(
			&tour.ID,
			&tour.Name,
			&tour.Description,
			&tour.ShortDescription,
			&tour.Price,
			&tour.Duration,
			&tour.MaxGroupSize,
			&tour.Difficulty,
			&tour.Category,
			&tour.ImageCover,
			&tour.CreatedAt,
			&tour.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		tours = append(tours, tour)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return tours, total, nil
}

func (r *TourRepository) Get(ctx context.Context, id string) (types.Tour, error) {
	const query = `
		SELECT id, name, description, short_description, price, duration,
			max_group_size, difficulty, category, image_cover, created_at, updated_at
		FROM tours
		WHERE id = $1`
	var tour types.Tour
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tour.ID,
		&tour.Name,
		&tour.Description,
		&tour.ShortDescription,
		&tour.Price,
		&tour.Duration,
		&tour.MaxGroupSize,
		&tour.Difficulty,
		&tour.Category,
		&tour.ImageCover,
		&tour.CreatedAt,
		&tour.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Tour{}, ErrNotFound
		}
		return types.Tour{}, err
	}
	return tour, nil
}

func (r *TourRepository) Create(ctx context.Context, tour types.Tour) (types.Tour, error) {
	now := time.Now()
	tour.ID = uuid.NewString()
	tour.CreatedAt = now
	tour.UpdatedAt = now

	const query = `
		INSERT INTO tours (
			id, name, description, short_description, price, duration,
			max_group_size, difficulty, category, image_cover, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		tour.ID,
		tour.Name,
		tour.Description,
		tour.ShortDescription,
		tour.Price,
		tour.Duration,
		tour.MaxGroupSize,
		tour.Difficulty,
		tour.Category,
		tour.ImageCover,
		tour.CreatedAt,
		tour.UpdatedAt,
	)
	if err != nil {
		return types.Tour{}, err
	}
	return tour, nil
}

func (r *TourRepository) Update(ctx context.Context, tour types.Tour) (types.Tour, error) {
	tour.UpdatedAt = time.Now()

	const query = `
		UPDATE tours
		SET name = $1,
			description = $2,
			short_description = $3,
			price = $4,
			duration = $5,
			max_group_size = $6,
			difficulty = $7,
			category = $8,
			updated_at = $9
		WHERE id = $10`
	result, err := r.db.ExecContext(
		ctx,
		query,
		tour.Name,
		tour.Description,
		tour.ShortDescription,
		tour.Price,
		tour.Duration,
		tour.MaxGroupSize,
		tour.Difficulty,
		tour.Category,
		tour.UpdatedAt,
		tour.ID,
	)
	if err != nil {
		return types.Tour{}, err
	}
	if err := requireAffected(result); err != nil {
		return types.Tour{}, err
	}
	return tour, nil
}

// SetImageCover records the media object key of the uploaded cover.
func (r *TourRepository) SetImageCover(ctx context.Context, id, key string) error {
	const query = `UPDATE tours SET image_cover = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, key, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *TourRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tours WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
