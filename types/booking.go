package types

import "time"

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// Booking ties a user to a tour departure. TotalPrice is computed from
// the tour price at booking time and never recalculated afterwards.
type Booking struct {
	ID           string    `json:"id" db:"id"`
	TourID       string    `json:"tourId" db:"tour_id"`
	UserID       string    `json:"userId" db:"user_id"`
	Participants int       `json:"participants" db:"participants"`
	TotalPrice   float64   `json:"totalPrice" db:"total_price"`
	Status       string    `json:"status" db:"status"`
	StartDate    time.Time `json:"startDate" db:"start_date"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
