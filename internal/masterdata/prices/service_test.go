package prices

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	internalShared "github.com/atlas-ims/atlas-ims/internal/shared"
)

type memPriceRepo struct {
	prices []SupplierPrice
	nextID int64
	hits   int
}

func (m *memPriceRepo) ListForSupplier(ctx context.Context, supplierID int64) ([]SupplierPrice, error) {
	var out []SupplierPrice
	for _, p := range m.prices {
		if p.SupplierID == supplierID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPriceRepo) Create(ctx context.Context, price SupplierPrice) (SupplierPrice, error) {
	m.nextID++
	price.ID = m.nextID
	price.CreatedAt = time.Now()
	m.prices = append(m.prices, price)
	return price, nil
}

func (m *memPriceRepo) Delete(ctx context.Context, id int64) error {
	for i, p := range m.prices {
		if p.ID == id {
			m.prices = append(m.prices[:i], m.prices[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("price %d: %w", id, internalShared.ErrNotFound)
}

func (m *memPriceRepo) CurrentPrice(ctx context.Context, supplierID, productID int64, asOf time.Time) (decimal.Decimal, error) {
	m.hits++
	var best *SupplierPrice
	for i := range m.prices {
		p := &m.prices[i]
		if p.SupplierID != supplierID || p.ProductID != productID || p.EffectiveDate.After(asOf) {
			continue
		}
		if best == nil || p.EffectiveDate.After(best.EffectiveDate) {
			best = p
		}
	}
	if best == nil {
		return decimal.Zero, fmt.Errorf("no price: %w", internalShared.ErrValidation)
	}
	return best.UnitPrice, nil
}

func newTestService(t *testing.T) (*Service, *memPriceRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &memPriceRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, client), repo
}

func TestUnitPriceUsesNewestEffectiveRow(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	old := SupplierPrice{SupplierID: 1, ProductID: 2, UnitPrice: decimal.RequireFromString("4.00"),
		EffectiveDate: time.Now().AddDate(0, -2, 0)}
	current := SupplierPrice{SupplierID: 1, ProductID: 2, UnitPrice: decimal.RequireFromString("4.50"),
		EffectiveDate: time.Now().AddDate(0, -1, 0)}
	future := SupplierPrice{SupplierID: 1, ProductID: 2, UnitPrice: decimal.RequireFromString("9.99"),
		EffectiveDate: time.Now().AddDate(0, 1, 0)}
	for _, p := range []SupplierPrice{old, current, future} {
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}

	price, err := svc.UnitPrice(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.RequireFromString("4.50")), "price %s", price)
}

func TestUnitPriceCachesLookups(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, SupplierPrice{SupplierID: 1, ProductID: 2,
		UnitPrice: decimal.RequireFromString("5.00"), EffectiveDate: time.Now().Add(-time.Hour)})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		price, err := svc.UnitPrice(ctx, 1, 2)
		require.NoError(t, err)
		require.True(t, price.Equal(decimal.RequireFromString("5.00")))
	}
	require.Equal(t, 1, repo.hits, "repeat lookups must be served from cache")
}

func TestCreateInvalidatesCache(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, SupplierPrice{SupplierID: 1, ProductID: 2,
		UnitPrice: decimal.RequireFromString("5.00"), EffectiveDate: time.Now().Add(-time.Hour)})
	require.NoError(t, err)

	price, err := svc.UnitPrice(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.RequireFromString("5.00")))

	_, err = svc.Create(ctx, SupplierPrice{SupplierID: 1, ProductID: 2,
		UnitPrice: decimal.RequireFromString("6.00"), EffectiveDate: time.Now().Add(-time.Minute)})
	require.NoError(t, err)

	price, err = svc.UnitPrice(ctx, 1, 2)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.RequireFromString("6.00")), "stale cache survived invalidation: %s", price)
}

func TestUnitPriceMissingIsValidationError(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UnitPrice(context.Background(), 1, 42)
	require.ErrorIs(t, err, internalShared.ErrValidation)
}
