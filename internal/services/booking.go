package services

import (
	"context"
	"errors"
	"time"

	"github.com/heptatravel/apiserver/types"
)

var (
	// ErrTooManyParticipants signals a booking beyond the tour's group
	// size.
	ErrTooManyParticipants = errors.New("services: participants exceed tour group size")
	// ErrBookingNotCancellable signals a cancel on a completed or
	// already cancelled booking.
	ErrBookingNotCancellable = errors.New("services: booking can no longer be cancelled")
)

// BookingRepository defines persistence operations for bookings.
type BookingRepository interface {
	Get(ctx context.Context, id string) (types.Booking, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]types.Booking, int, error)
	ListAll(ctx context.Context, offset, limit int) ([]types.Booking, int, error)
	Create(ctx context.Context, booking types.Booking) (types.Booking, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// BookingService encapsulates booking use-cases.
type BookingService struct {
	repo  BookingRepository
	tours TourRepository
}

func NewBookingService(repo BookingRepository, tours TourRepository) *BookingService {
	return &BookingService{repo: repo, tours: tours}
}

// Create books a tour for a user. The total is the tour price at
// booking time multiplied by the participant count.
func (s *BookingService) Create(ctx context.Context, userID, tourID string, participants int, startDate time.Time) (types.Booking, error) {
	tour, err := s.tours.Get(ctx, tourID)
	if err != nil {
		return types.Booking{}, err
	}
	if participants > tour.MaxGroupSize {
		return types.Booking{}, ErrTooManyParticipants
	}

	return s.repo.Create(ctx, types.Booking{
		TourID:       tour.ID,
		UserID:       userID,
		Participants: participants,
		TotalPrice:   tour.Price * float64(participants),
		Status:       types.BookingPending,
		StartDate:    startDate,
	})
}

func (s *BookingService) Get(ctx context.Context, id string) (types.Booking, error) {
	return s.repo.Get(ctx, id)
}

func (s *BookingService) ListByUser(ctx context.Context, userID string, offset, limit int) ([]types.Booking, int, error) {
	return s.repo.ListByUser(ctx, userID, offset, limit)
}

func (s *BookingService) ListAll(ctx context.Context, offset, limit int) ([]types.Booking, int, error) {
	return s.repo.ListAll(ctx, offset, limit)
}

// UpdateStatus sets a booking's status without transition checks.
// Admin-only.
func (s *BookingService) UpdateStatus(ctx context.Context, id, status string) error {
	return s.repo.UpdateStatus(ctx, id, status)
}

// Cancel marks a booking cancelled. Only pending and confirmed
// bookings can be cancelled.
func (s *BookingService) Cancel(ctx context.Context, booking types.Booking) error {
	switch booking.Status {
	case types.BookingPending, types.BookingConfirmed:
	default:
		return ErrBookingNotCancellable
	}
	return s.repo.UpdateStatus(ctx, booking.ID, types.BookingCancelled)
}
