package costing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-ims/atlas-ims/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	ListLayers(ctx context.Context, productID, warehouseID int64, includeClosed bool) ([]CostLayer, error)
	ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error)
	OnHand(ctx context.Context, productID, warehouseID int64) (OnHand, error)
}

// TxStore exposes the transactional persistence boundary for cost layers and
// the ledger. Implementations must serialize LockOpenLayers for the same
// (product, warehouse) so two issues never consume the same remaining qty.
type TxStore interface {
	OpenLayer(ctx context.Context, layer CostLayer) (int64, error)
	LockOpenLayers(ctx context.Context, productID, warehouseID int64) ([]CostLayer, error)
	ReduceLayer(ctx context.Context, layerID int64, newRemaining decimal.Decimal) error
	AppendEntry(ctx context.Context, entry LedgerEntry) (int64, error)
}

// Service owns FIFO consumption and the movement ledger.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the costing service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// IssueInput describes an outbound stock movement.
type IssueInput struct {
	ProductID     int64
	WarehouseID   int64
	Qty           decimal.Decimal
	Type          TransactionType
	ReferenceID   int64
	ReferenceType string
	IssuedAt      time.Time
}

// IssueResult reports which layers were consumed and at what cost.
type IssueResult struct {
	Consumptions []Consumption
	TotalCost    decimal.Decimal
	Entry        LedgerEntry
}

// Issue consumes open layers FIFO and records the outbound ledger row as one
// atomic unit. Nothing is committed when open stock falls short.
func (s *Service) Issue(ctx context.Context, input IssueInput) (IssueResult, error) {
	if input.ProductID == 0 || input.WarehouseID == 0 {
		return IssueResult{}, fmt.Errorf("costing: product and warehouse required: %w", shared.ErrValidation)
	}
	if input.Qty.Sign() <= 0 {
		return IssueResult{}, fmt.Errorf("costing: issue quantity must be positive: %w", shared.ErrValidation)
	}
	typ := input.Type
	if typ == "" {
		typ = TransactionSale
	}
	if !typ.Known() || typ.Inbound() {
		return IssueResult{}, fmt.Errorf("costing: %q is not an outbound transaction type: %w", typ, shared.ErrValidation)
	}

	var result IssueResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		plan, totalCost, err := consume(ctx, tx, input.ProductID, input.WarehouseID, input.Qty)
		if err != nil {
			return err
		}
		entry, err := NewEntry(typ, input.ProductID, input.WarehouseID,
			decimal.Zero, input.Qty, totalCost, input.ReferenceID, input.ReferenceType, input.IssuedAt)
		if err != nil {
			return err
		}
		id, err := tx.AppendEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		result = IssueResult{Consumptions: plan, TotalCost: totalCost, Entry: entry}
		return nil
	})
	if err != nil {
		return IssueResult{}, err
	}
	return result, nil
}

// TransferInput moves stock between two warehouses at FIFO cost.
type TransferInput struct {
	ProductID      int64
	SrcWarehouseID int64
	DstWarehouseID int64
	Qty            decimal.Decimal
	ReferenceID    int64
	TransferredAt  time.Time
}

// TransferResult reports both sides of a completed transfer.
type TransferResult struct {
	Consumptions []Consumption
	TotalCost    decimal.Decimal
	OutEntry     LedgerEntry
	InEntry      LedgerEntry
}

// Transfer consumes source layers FIFO and opens a single destination layer
// carrying the consumed cost, with matching OUT and IN ledger rows, all in
// one transaction.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	if input.ProductID == 0 || input.SrcWarehouseID == 0 || input.DstWarehouseID == 0 {
		return TransferResult{}, fmt.Errorf("costing: product and warehouses required: %w", shared.ErrValidation)
	}
	if input.SrcWarehouseID == input.DstWarehouseID {
		return TransferResult{}, fmt.Errorf("costing: source and destination warehouse must differ: %w", shared.ErrValidation)
	}
	if input.Qty.Sign() <= 0 {
		return TransferResult{}, fmt.Errorf("costing: transfer quantity must be positive: %w", shared.ErrValidation)
	}
	at := input.TransferredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var result TransferResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		plan, totalCost, err := consume(ctx, tx, input.ProductID, input.SrcWarehouseID, input.Qty)
		if err != nil {
			return err
		}

		outEntry, err := NewEntry(TransactionTransferOut, input.ProductID, input.SrcWarehouseID,
			decimal.Zero, input.Qty, totalCost, input.ReferenceID, "StockTransfer", at)
		if err != nil {
			return err
		}
		if outEntry.ID, err = tx.AppendEntry(ctx, outEntry); err != nil {
			return err
		}

		// Destination receives one layer at the blended FIFO cost.
		unitCost := totalCost.DivRound(input.Qty, 4)
		if _, err := tx.OpenLayer(ctx, CostLayer{
			ProductID:    input.ProductID,
			WarehouseID:  input.DstWarehouseID,
			RemainingQty: input.Qty,
			UnitCost:     unitCost,
			CreatedAt:    at,
		}); err != nil {
			return err
		}

		inEntry, err := NewEntry(TransactionTransferIn, input.ProductID, input.DstWarehouseID,
			input.Qty, decimal.Zero, totalCost, input.ReferenceID, "StockTransfer", at)
		if err != nil {
			return err
		}
		if inEntry.ID, err = tx.AppendEntry(ctx, inEntry); err != nil {
			return err
		}

		result = TransferResult{Consumptions: plan, TotalCost: totalCost, OutEntry: outEntry, InEntry: inEntry}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}
	return result, nil
}

// consume locks the open layers, plans the FIFO walk and applies the
// reductions. Shared by Issue and Transfer; callers run it inside a tx.
func consume(ctx context.Context, tx TxStore, productID, warehouseID int64, qty decimal.Decimal) ([]Consumption, decimal.Decimal, error) {
	layers, err := tx.LockOpenLayers(ctx, productID, warehouseID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	plan, totalCost, err := PlanConsumption(layers, qty)
	if err != nil {
		return nil, decimal.Zero, err
	}
	remaining := make(map[int64]decimal.Decimal, len(layers))
	for _, l := range layers {
		remaining[l.ID] = l.RemainingQty
	}
	for _, c := range plan {
		if err := tx.ReduceLayer(ctx, c.LayerID, remaining[c.LayerID].Sub(c.Qty)); err != nil {
			return nil, decimal.Zero, err
		}
	}
	return plan, totalCost, nil
}

// ListLayers returns cost layers for a product and warehouse, open ones only
// unless includeClosed is set.
func (s *Service) ListLayers(ctx context.Context, productID, warehouseID int64, includeClosed bool) ([]CostLayer, error) {
	if productID == 0 || warehouseID == 0 {
		return nil, fmt.Errorf("costing: product and warehouse required: %w", shared.ErrValidation)
	}
	return s.repo.ListLayers(ctx, productID, warehouseID, includeClosed)
}

// ListLedger returns ledger entries matching the filter, newest first.
func (s *Service) ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListLedger(ctx, filter)
}

// OnHand returns the ledger balance and open-layer value for one pair.
func (s *Service) OnHand(ctx context.Context, productID, warehouseID int64) (OnHand, error) {
	if productID == 0 || warehouseID == 0 {
		return OnHand{}, fmt.Errorf("costing: product and warehouse required: %w", shared.ErrValidation)
	}
	return s.repo.OnHand(ctx, productID, warehouseID)
}
