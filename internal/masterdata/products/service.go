package products

import (
	"context"
	"fmt"

	"github.com/atlas-ims/atlas-ims/internal/masterdata/shared"
	internalShared "github.com/atlas-ims/atlas-ims/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]ListItem, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64, includeDeleted bool) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("invalid product ID: %w", internalShared.ErrValidation)
	}
	return s.repo.Get(ctx, id, includeDeleted)
}

func (s *Service) Create(ctx context.Context, product Product) (Product, error) {
	if err := s.validate(product); err != nil {
		return Product{}, err
	}
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, id int64, product Product) error {
	if id <= 0 {
		return fmt.Errorf("invalid product ID: %w", internalShared.ErrValidation)
	}
	if err := s.validate(product); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, product)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("invalid product ID: %w", internalShared.ErrValidation)
	}
	return s.repo.Delete(ctx, id)
}

// Exists is the catalog check used by purchasing.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}
