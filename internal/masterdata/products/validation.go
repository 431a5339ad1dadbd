package products

import (
	"fmt"
	"strings"

	internalShared "github.com/atlas-ims/atlas-ims/internal/shared"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("product SKU is required: %w", internalShared.ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product name is required: %w", internalShared.ErrValidation)
	}
	if p.CategoryID <= 0 {
		return fmt.Errorf("product category is required: %w", internalShared.ErrValidation)
	}
	if p.UnitID <= 0 {
		return fmt.Errorf("product unit is required: %w", internalShared.ErrValidation)
	}
	return nil
}
