package suppliers

import (
	"fmt"
	"strings"

	internalShared "github.com/atlas-ims/atlas-ims/internal/shared"
)

func (s *Service) validate(sup Supplier) error {
	if strings.TrimSpace(sup.Code) == "" {
		return fmt.Errorf("supplier code is required: %w", internalShared.ErrValidation)
	}
	if strings.TrimSpace(sup.Name) == "" {
		return fmt.Errorf("supplier name is required: %w", internalShared.ErrValidation)
	}
	return nil
}
