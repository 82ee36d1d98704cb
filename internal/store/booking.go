package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/heptatravel/apiserver/types"
)

const bookingColumns = `
	id, tour_id, user_id, participants, total_price, status, start_date,
	created_at, updated_at`

// BookingRepository handles persistence for bookings.
type BookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Get(ctx context.Context, id string) (types.Booking, error) {
	const query = `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]types.Booking, int, error) {
	const countQuery = `SELECT COUNT(1) FROM bookings WHERE user_id = $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`
	return r.scanMany(ctx, total, listQuery, userID, offset, limit)
}

// ListAll returns every booking, newest first. Admin-only at the
// handler layer.
func (r *BookingRepository) ListAll(ctx context.Context, offset, limit int) ([]types.Booking, int, error) {
	const countQuery = `SELECT COUNT(1) FROM bookings`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + bookingColumns + `
		FROM bookings
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`
	return r.scanMany(ctx, total, listQuery, offset, limit)
}

func (r *BookingRepository) Create(ctx context.Context, booking types.Booking) (types.Booking, error) {
	now := time.Now()
	booking.ID = uuid.NewString()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	const query = `
		INSERT INTO bookings (
			id, tour_id, user_id, participants, total_price, status,
			start_date, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		booking.ID,
		booking.TourID,
		booking.UserID,
		booking.Participants,
		booking.TotalPrice,
		booking.Status,
		booking.StartDate,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		return types.Booking{}, err
	}
	return booking, nil
}

func (r *BookingRepository) UpdateStatus(ctx context.Context, id, status string) error {
	const query = `UPDATE bookings SET status = $1, updated_at = now() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *BookingRepository) scanOne(row *sql.Row) (types.Booking, error) {
	var booking types.Booking
	err := row.Scan(
		&booking.ID,
		&booking.TourID,
		&booking.UserID,
		&booking.Participants,
		&booking.TotalPrice,
		&booking.Status,
		&booking.StartDate,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Booking{}, ErrNotFound
		}
		return types.Booking{}, err
	}
	return booking, nil
}

func (r *BookingRepository) scanMany(ctx context.Context, total int, query string, args ...any) ([]types.Booking, int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bookings := []types.Booking{}
	for rows.Next() {
		var booking types.Booking
		if err := rows.Scan(
			&booking.ID,
			&booking.TourID,
			&booking.UserID,
			&booking.Participants,
			&booking.TotalPrice,
			&booking.Status,
			&booking.StartDate,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return bookings, total, nil
}
