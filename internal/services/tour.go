package services

import (
	"context"

	"github.com/heptatravel/apiserver/internal/store"
	"github.com/heptatravel/apiserver/types"
)

// TourRepository defines persistence operations for tours.
type TourRepository interface {
	List(ctx context.Context, filter store.TourFilter, offset, limit int) ([]types.Tour, int, error)
	Get(ctx context.Context, id string) (types.Tour, error)
	Create(ctx context.Context, tour types.Tour) (types.Tour, error)
	Update(ctx context.Context, tour types.Tour) (types.Tour, error)
	SetImageCover(ctx context.Context, id, key string) error
	Delete(ctx context.Context, id string) error
}

// TourService encapsulates tour use-cases.
type TourService struct {
	repo TourRepository
}

func NewTourService(repo TourRepository) *TourService {
	return &TourService{repo: repo}
}

func (s *TourService) List(ctx context.Context, filter store.TourFilter, offset, limit int) ([]types.Tour, int, error) {
	return s.repo.List(ctx, filter, offset, limit)
}

func (s *TourService) Get(ctx context.Context, id string) (types.Tour, error) {
	return s.repo.Get(ctx, id)
}

func (s *TourService) Create(ctx context.Context, tour types.Tour) (types.Tour, error) {
	return s.repo.Create(ctx, tour)
}

func (s *TourService) Update(ctx context.Context, tour types.Tour) (types.Tour, error) {
	return s.repo.Update(ctx, tour)
}

func (s *TourService) SetImageCover(ctx context.Context, id, key string) error {
	return s.repo.SetImageCover(ctx, id, key)
}

func (s *TourService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
