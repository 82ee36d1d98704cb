package types

import "time"

// Review is a user's rating of a tour. One review per user per tour.
type Review struct {
	ID        string    `json:"id" db:"id"`
	TourID    string    `json:"tourId" db:"tour_id"`
	UserID    string    `json:"userId" db:"user_id"`
	Rating    int       `json:"rating" db:"rating"`
	Review    string    `json:"review" db:"review"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
