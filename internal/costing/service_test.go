package costing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/atlas-ims/atlas-ims/internal/shared"
)

// memRepo implements RepositoryPort and TxStore in memory for service tests.
type memRepo struct {
	layers []CostLayer
	ledger []LedgerEntry
	nextL  int64
	nextE  int64
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, m)
}

func (m *memRepo) OpenLayer(ctx context.Context, layer CostLayer) (int64, error) {
	m.nextL++
	layer.ID = m.nextL
	m.layers = append(m.layers, layer)
	return layer.ID, nil
}

func (m *memRepo) LockOpenLayers(ctx context.Context, productID, warehouseID int64) ([]CostLayer, error) {
	var out []CostLayer
	for _, l := range m.layers {
		if l.ProductID == productID && l.WarehouseID == warehouseID && !l.Closed() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memRepo) ReduceLayer(ctx context.Context, layerID int64, newRemaining decimal.Decimal) error {
	for i := range m.layers {
		if m.layers[i].ID == layerID {
			if m.layers[i].RemainingQty.LessThan(newRemaining) {
				return fmt.Errorf("layer %d would grow", layerID)
			}
			m.layers[i].RemainingQty = newRemaining
			return nil
		}
	}
	return fmt.Errorf("layer %d: %w", layerID, shared.ErrNotFound)
}

func (m *memRepo) AppendEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	m.nextE++
	entry.ID = m.nextE
	m.ledger = append(m.ledger, entry)
	return entry.ID, nil
}

func (m *memRepo) ListLayers(ctx context.Context, productID, warehouseID int64, includeClosed bool) ([]CostLayer, error) {
	var out []CostLayer
	for _, l := range m.layers {
		if l.ProductID != productID || l.WarehouseID != warehouseID {
			continue
		}
		if !includeClosed && l.Closed() {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *memRepo) ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for i := len(m.ledger) - 1; i >= 0; i-- {
		out = append(out, m.ledger[i])
	}
	return out, nil
}

func (m *memRepo) OnHand(ctx context.Context, productID, warehouseID int64) (OnHand, error) {
	oh := OnHand{ProductID: productID, WarehouseID: warehouseID, Quantity: decimal.Zero, LayerValue: decimal.Zero}
	for _, e := range m.ledger {
		if e.ProductID != productID || e.WarehouseID != warehouseID {
			continue
		}
		oh.Quantity = oh.Quantity.Add(e.QuantityIn).Sub(e.QuantityOut)
	}
	for _, l := range m.layers {
		if l.ProductID == productID && l.WarehouseID == warehouseID && !l.Closed() {
			oh.LayerValue = oh.LayerValue.Add(l.RemainingQty.Mul(l.UnitCost))
		}
	}
	return oh, nil
}

// openRemaining sums remaining qty across open layers for one pair.
func (m *memRepo) openRemaining(productID, warehouseID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range m.layers {
		if l.ProductID == productID && l.WarehouseID == warehouseID && !l.Closed() {
			sum = sum.Add(l.RemainingQty)
		}
	}
	return sum
}

// ledgerBalance sums in minus out for one pair.
func (m *memRepo) ledgerBalance(productID, warehouseID int64) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range m.ledger {
		if e.ProductID == productID && e.WarehouseID == warehouseID {
			sum = sum.Add(e.QuantityIn).Sub(e.QuantityOut)
		}
	}
	return sum
}

func seedLayers(t *testing.T, repo *memRepo) {
	t.Helper()
	ctx := context.Background()
	for _, l := range []CostLayer{
		{ProductID: 1, WarehouseID: 7, RemainingQty: dec("6"), UnitCost: dec("5.00"), CreatedAt: time.Now()},
		{ProductID: 1, WarehouseID: 7, RemainingQty: dec("10"), UnitCost: dec("5.50"), CreatedAt: time.Now()},
	} {
		_, err := repo.OpenLayer(ctx, l)
		require.NoError(t, err)
		entry, err := NewEntry(TransactionPurchase, l.ProductID, l.WarehouseID,
			l.RemainingQty, decimal.Zero, l.RemainingQty.Mul(l.UnitCost), 0, "GoodsReceipt", time.Now())
		require.NoError(t, err)
		_, err = repo.AppendEntry(ctx, entry)
		require.NoError(t, err)
	}
}

func TestIssueConsumesFIFOAndWritesLedger(t *testing.T) {
	repo := &memRepo{}
	seedLayers(t, repo)
	svc := NewService(repo)

	result, err := svc.Issue(context.Background(), IssueInput{
		ProductID:   1,
		WarehouseID: 7,
		Qty:         dec("8"),
	})
	require.NoError(t, err)

	require.True(t, result.TotalCost.Equal(dec("41.00")), "total %s", result.TotalCost)
	require.Len(t, result.Consumptions, 2)

	// First layer drained and closed, second reduced to 8.
	require.True(t, repo.layers[0].Closed())
	require.True(t, repo.layers[1].RemainingQty.Equal(dec("8")))

	// Layers are never deleted.
	require.Len(t, repo.layers, 2)

	require.Equal(t, TransactionSale, result.Entry.Type)
	require.True(t, result.Entry.QuantityOut.Equal(dec("8")))
	require.True(t, result.Entry.QuantityIn.IsZero())
}

func TestIssueKeepsLedgerAndLayersInBalance(t *testing.T) {
	repo := &memRepo{}
	seedLayers(t, repo)
	svc := NewService(repo)

	for _, qty := range []string{"3", "7", "2"} {
		_, err := svc.Issue(context.Background(), IssueInput{ProductID: 1, WarehouseID: 7, Qty: dec(qty)})
		require.NoError(t, err)
		require.True(t, repo.openRemaining(1, 7).Equal(repo.ledgerBalance(1, 7)),
			"layers %s vs ledger %s after issuing %s",
			repo.openRemaining(1, 7), repo.ledgerBalance(1, 7), qty)
	}
	require.True(t, repo.openRemaining(1, 7).Equal(dec("4")))
}

func TestIssueInsufficientStockChangesNothing(t *testing.T) {
	repo := &memRepo{}
	seedLayers(t, repo)
	svc := NewService(repo)

	_, err := svc.Issue(context.Background(), IssueInput{ProductID: 1, WarehouseID: 7, Qty: dec("17")})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	require.True(t, repo.openRemaining(1, 7).Equal(dec("16")))
	require.Len(t, repo.ledger, 2)
}

func TestIssueRejectsInboundType(t *testing.T) {
	repo := &memRepo{}
	seedLayers(t, repo)
	svc := NewService(repo)

	_, err := svc.Issue(context.Background(), IssueInput{
		ProductID: 1, WarehouseID: 7, Qty: dec("1"), Type: TransactionPurchase,
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestTransferMovesStockAtBlendedCost(t *testing.T) {
	repo := &memRepo{}
	seedLayers(t, repo)
	svc := NewService(repo)

	result, err := svc.Transfer(context.Background(), TransferInput{
		ProductID:      1,
		SrcWarehouseID: 7,
		DstWarehouseID: 8,
		Qty:            dec("8"),
	})
	require.NoError(t, err)

	require.True(t, result.TotalCost.Equal(dec("41.00")))
	require.Equal(t, TransactionTransferOut, result.OutEntry.Type)
	require.Equal(t, TransactionTransferIn, result.InEntry.Type)

	// Source lost 8, destination gained one layer of 8 at 41.00/8 = 5.125.
	require.True(t, repo.openRemaining(1, 7).Equal(dec("8")))
	require.True(t, repo.openRemaining(1, 8).Equal(dec("8")))
	dst, err := repo.ListLayers(context.Background(), 1, 8, false)
	require.NoError(t, err)
	require.Len(t, dst, 1)
	require.True(t, dst[0].UnitCost.Equal(dec("5.125")), "unit cost %s", dst[0].UnitCost)

	// Global balance is preserved across both warehouses.
	total := repo.ledgerBalance(1, 7).Add(repo.ledgerBalance(1, 8))
	require.True(t, total.Equal(dec("16")))
}

func TestTransferSameWarehouseRejected(t *testing.T) {
	svc := NewService(&memRepo{})

	_, err := svc.Transfer(context.Background(), TransferInput{
		ProductID: 1, SrcWarehouseID: 7, DstWarehouseID: 7, Qty: dec("1"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}
