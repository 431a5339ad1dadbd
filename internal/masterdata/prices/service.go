package prices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	internalShared "github.com/atlas-ims/atlas-ims/internal/shared"
)

const cacheTTL = 5 * time.Minute

// Service resolves supplier prices with a redis read-through cache. Lookups
// for the same (supplier, product) pair are collapsed through singleflight so
// a cold cache does not stampede the database.
type Service struct {
	logger *slog.Logger
	repo   Repository
	cache  *redis.Client
	group  singleflight.Group
	now    func() time.Time
}

func NewService(logger *slog.Logger, repo Repository, cache *redis.Client) *Service {
	return &Service{
		logger: logger,
		repo:   repo,
		cache:  cache,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListForSupplier(ctx context.Context, supplierID int64) ([]SupplierPrice, error) {
	if supplierID <= 0 {
		return nil, fmt.Errorf("invalid supplier ID: %w", internalShared.ErrValidation)
	}
	return s.repo.ListForSupplier(ctx, supplierID)
}

func (s *Service) Create(ctx context.Context, price SupplierPrice) (SupplierPrice, error) {
	if price.SupplierID <= 0 || price.ProductID <= 0 {
		return SupplierPrice{}, fmt.Errorf("supplier and product required: %w", internalShared.ErrValidation)
	}
	if price.UnitPrice.Sign() < 0 {
		return SupplierPrice{}, fmt.Errorf("unit price must not be negative: %w", internalShared.ErrValidation)
	}
	if price.EffectiveDate.IsZero() {
		price.EffectiveDate = s.now()
	}
	created, err := s.repo.Create(ctx, price)
	if err != nil {
		return SupplierPrice{}, err
	}
	s.invalidate(ctx, created.SupplierID, created.ProductID)
	return created, nil
}

func (s *Service) Delete(ctx context.Context, id int64, supplierID, productID int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, supplierID, productID)
	return nil
}

// UnitPrice returns the supplier's current price for a product. Cache first,
// then database through singleflight. A missing price is a validation error,
// never a silent zero.
func (s *Service) UnitPrice(ctx context.Context, supplierID, productID int64) (decimal.Decimal, error) {
	key := cacheKey(supplierID, productID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			if price, perr := decimal.NewFromString(cached); perr == nil {
				return price, nil
			}
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		price, err := s.repo.CurrentPrice(ctx, supplierID, productID, s.now())
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, price.String(), cacheTTL).Err(); err != nil {
				s.logger.Warn("price cache set failed", "error", err, "key", key)
			}
		}
		return price, nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

func (s *Service) invalidate(ctx context.Context, supplierID, productID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(supplierID, productID)).Err(); err != nil {
		s.logger.Warn("price cache invalidate failed", "error", err,
			"supplier_id", supplierID, "product_id", productID)
	}
}

func cacheKey(supplierID, productID int64) string {
	return fmt.Sprintf("price:%d:%d", supplierID, productID)
}
