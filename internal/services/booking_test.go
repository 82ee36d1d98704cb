package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/heptatravel/apiserver/internal/store"
	"github.com/heptatravel/apiserver/types"
)

type fakeTourRepo struct {
	tours map[string]types.Tour
}

func (r *fakeTourRepo) List(_ context.Context, _ store.TourFilter, _, _ int) ([]types.Tour, int, error) {
	var out []types.Tour
	for _, t := range r.tours {
		out = append(out, t)
	}
	return out, len(out), nil
}

func (r *fakeTourRepo) Get(_ context.Context, id string) (types.Tour, error) {
	if t, ok := r.tours[id]; ok {
		return t, nil
	}
	return types.Tour{}, store.ErrNotFound
}

func (r *fakeTourRepo) Create(_ context.Context, tour types.Tour) (types.Tour, error) {
	r.tours[tour.ID] = tour
	return tour, nil
}

func (r *fakeTourRepo) Update(_ context.Context, tour types.Tour) (types.Tour, error) {
	if _, ok := r.tours[tour.ID]; !ok {
		return types.Tour{}, store.ErrNotFound
	}
	r.tours[tour.ID] = tour
	return tour, nil
}

func (r *fakeTourRepo) SetImageCover(_ context.Context, id, key string) error {
	t, ok := r.tours[id]
	if !ok {
		return store.ErrNotFound
	}
	t.ImageCover = key
	r.tours[id] = t
	return nil
}

func (r *fakeTourRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tours[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.tours, id)
	return nil
}

type fakeBookingRepo struct {
	bookings map[string]types.Booking
	nextID   int
}

func (r *fakeBookingRepo) Get(_ context.Context, id string) (types.Booking, error) {
	if b, ok := r.bookings[id]; ok {
		return b, nil
	}
	return types.Booking{}, store.ErrNotFound
}

func (r *fakeBookingRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]types.Booking, int, error) {
	var out []types.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, len(out), nil
}

func (r *fakeBookingRepo) ListAll(_ context.Context, _, _ int) ([]types.Booking, int, error) {
	var out []types.Booking
	for _, b := range r.bookings {
		out = append(out, b)
	}
	return out, len(out), nil
}

func (r *fakeBookingRepo) Create(_ context.Context, booking types.Booking) (types.Booking, error) {
	r.nextID++
	booking.ID = fmt.Sprintf("booking-%d", r.nextID)
	r.bookings[booking.ID] = booking
	return booking, nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, id, status string) error {
	b, ok := r.bookings[id]
	if !ok {
		return store.ErrNotFound
	}
	b.Status = status
	r.bookings[id] = b
	return nil
}

func newBookingService() (*BookingService, *fakeBookingRepo, *fakeTourRepo) {
	tours := &fakeTourRepo{tours: map[string]types.Tour{
		"tour-1": {ID: "tour-1", Name: "Fjord Cruise", Price: 250, MaxGroupSize: 8},
	}}
	bookings := &fakeBookingRepo{bookings: make(map[string]types.Booking)}
	return NewBookingService(bookings, tours), bookings, tours
}

func TestBookingCreateComputesTotal(t *testing.T) {
	service, _, _ := newBookingService()

	start := time.Now().AddDate(0, 1, 0)
	booking, err := service.Create(context.Background(), "user-1", "tour-1", 3, start)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if booking.TotalPrice != 750 {
		t.Errorf("TotalPrice = %v, want 750", booking.TotalPrice)
	}
	if booking.Status != types.BookingPending {
		t.Errorf("Status = %q, want pending", booking.Status)
	}
}

func TestBookingCreateUnknownTour(t *testing.T) {
	service, _, _ := newBookingService()

	_, err := service.Create(context.Background(), "user-1", "no-such-tour", 1, time.Now())
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestBookingCreateGroupSizeCap(t *testing.T) {
	service, _, _ := newBookingService()

	_, err := service.Create(context.Background(), "user-1", "tour-1", 9, time.Now())
	if !errors.Is(err, ErrTooManyParticipants) {
		t.Fatalf("expected ErrTooManyParticipants, got %v", err)
	}
}

func TestBookingCancelTransitions(t *testing.T) {
	service, repo, _ := newBookingService()
	ctx := context.Background()

	tests := []struct {
		status  string
		wantErr error
	}{
		{types.BookingPending, nil},
		{types.BookingConfirmed, nil},
		{types.BookingCancelled, ErrBookingNotCancellable},
		{types.BookingCompleted, ErrBookingNotCancellable},
	}
	for _, tt := range tests {
		booking, err := repo.Create(ctx, types.Booking{TourID: "tour-1", UserID: "user-1", Status: tt.status})
		if err != nil {
			t.Fatalf("seed booking: %v", err)
		}

		err = service.Cancel(ctx, booking)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Cancel from %q: err = %v, want %v", tt.status, err, tt.wantErr)
			continue
		}
		if tt.wantErr == nil {
			got, _ := repo.Get(ctx, booking.ID)
			if got.Status != types.BookingCancelled {
				t.Errorf("status after cancel from %q = %q, want cancelled", tt.status, got.Status)
			}
		}
	}
}

func TestReviewCreateRejectsDuplicate(t *testing.T) {
	tours := &fakeTourRepo{tours: map[string]types.Tour{
		"tour-1": {ID: "tour-1", Name: "Fjord Cruise", MaxGroupSize: 8},
	}}
	reviews := &fakeReviewRepo{reviews: make(map[string]types.Review)}
	service := NewReviewService(reviews, tours)
	ctx := context.Background()

	first := types.Review{TourID: "tour-1", UserID: "user-1", Rating: 5, Review: "great"}
	if _, err := service.Create(ctx, first); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	if _, err := service.Create(ctx, first); !errors.Is(err, ErrDuplicateReview) {
		t.Fatalf("expected ErrDuplicateReview, got %v", err)
	}

	if _, err := service.Create(ctx, types.Review{TourID: "no-such-tour", UserID: "user-1", Rating: 4}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound for unknown tour, got %v", err)
	}
}

type fakeReviewRepo struct {
	reviews map[string]types.Review
	nextID  int
}

func (r *fakeReviewRepo) Get(_ context.Context, id string) (types.Review, error) {
	if rev, ok := r.reviews[id]; ok {
		return rev, nil
	}
	return types.Review{}, store.ErrNotFound
}

func (r *fakeReviewRepo) GetByTourAndUser(_ context.Context, tourID, userID string) (types.Review, error) {
	for _, rev := range r.reviews {
		if rev.TourID == tourID && rev.UserID == userID {
			return rev, nil
		}
	}
	return types.Review{}, store.ErrNotFound
}

func (r *fakeReviewRepo) ListByTour(_ context.Context, tourID string, _, _ int) ([]types.Review, int, error) {
	var out []types.Review
	for _, rev := range r.reviews {
		if rev.TourID == tourID {
			out = append(out, rev)
		}
	}
	return out, len(out), nil
}

func (r *fakeReviewRepo) Create(_ context.Context, review types.Review) (types.Review, error) {
	r.nextID++
	review.ID = fmt.Sprintf("review-%d", r.nextID)
	r.reviews[review.ID] = review
	return review, nil
}

func (r *fakeReviewRepo) Update(_ context.Context, review types.Review) (types.Review, error) {
	if _, ok := r.reviews[review.ID]; !ok {
		return types.Review{}, store.ErrNotFound
	}
	r.reviews[review.ID] = review
	return review, nil
}

func (r *fakeReviewRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.reviews[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.reviews, id)
	return nil
}
