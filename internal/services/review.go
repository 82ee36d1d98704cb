package services

import (
	"context"
	"errors"

	"github.com/heptatravel/apiserver/internal/store"
	"github.com/heptatravel/apiserver/types"
)

// ErrDuplicateReview signals a second review by the same user on the
// same tour.
var ErrDuplicateReview = errors.New("services: user already reviewed this tour")

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	Get(ctx context.Context, id string) (types.Review, error)
	GetByTourAndUser(ctx context.Context, tourID, userID string) (types.Review, error)
	ListByTour(ctx context.Context, tourID string, offset, limit int) ([]types.Review, int, error)
	Create(ctx context.Context, review types.Review) (types.Review, error)
	Update(ctx context.Context, review types.Review) (types.Review, error)
	Delete(ctx context.Context, id string) error
}

// ReviewService encapsulates review use-cases.
type ReviewService struct {
	repo  ReviewRepository
	tours TourRepository
}

func NewReviewService(repo ReviewRepository, tours TourRepository) *ReviewService {
	return &ReviewService{repo: repo, tours: tours}
}

func (s *ReviewService) Get(ctx context.Context, id string) (types.Review, error) {
	return s.repo.Get(ctx, id)
}

func (s *ReviewService) ListByTour(ctx context.Context, tourID string, offset, limit int) ([]types.Review, int, error) {
	return s.repo.ListByTour(ctx, tourID, offset, limit)
}

// Create adds a review after checking the tour exists and the user has
// not reviewed it before.
func (s *ReviewService) Create(ctx context.Context, review types.Review) (types.Review, error) {
	if _, err := s.tours.Get(ctx, review.TourID); err != nil {
		return types.Review{}, err
	}

	if _, err := s.repo.GetByTourAndUser(ctx, review.TourID, review.UserID); err == nil {
		return types.Review{}, ErrDuplicateReview
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Review{}, err
	}

	return s.repo.Create(ctx, review)
}

func (s *ReviewService) Update(ctx context.Context, review types.Review) (types.Review, error) {
	return s.repo.Update(ctx, review)
}

func (s *ReviewService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
