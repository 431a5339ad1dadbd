package costing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-ims/atlas-ims/internal/shared"
)

// NewEntry builds a ledger entry, enforcing the exactly-one-side rule:
// one of qtyIn/qtyOut must be positive and the other zero. Every write to the
// ledger goes through here; there is no update or delete path.
func NewEntry(t TransactionType, productID, warehouseID int64, qtyIn, qtyOut, totalCost decimal.Decimal, refID int64, refType string, at time.Time) (LedgerEntry, error) {
	if !t.Known() {
		return LedgerEntry{}, fmt.Errorf("costing: unknown transaction type %q: %w", t, shared.ErrValidation)
	}
	if productID == 0 || warehouseID == 0 {
		return LedgerEntry{}, fmt.Errorf("costing: product and warehouse required: %w", shared.ErrValidation)
	}
	if qtyIn.Sign() < 0 || qtyOut.Sign() < 0 {
		return LedgerEntry{}, fmt.Errorf("costing: ledger quantities must not be negative: %w", shared.ErrValidation)
	}
	if (qtyIn.Sign() > 0) == (qtyOut.Sign() > 0) {
		return LedgerEntry{}, fmt.Errorf("costing: exactly one of quantity in/out must be positive: %w", shared.ErrValidation)
	}
	if totalCost.Sign() < 0 {
		return LedgerEntry{}, fmt.Errorf("costing: total cost must not be negative: %w", shared.ErrValidation)
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return LedgerEntry{
		ProductID:       productID,
		WarehouseID:     warehouseID,
		Type:            t,
		ReferenceID:     refID,
		ReferenceType:   refType,
		QuantityIn:      qtyIn,
		QuantityOut:     qtyOut,
		TotalCost:       totalCost,
		TransactionDate: at,
	}, nil
}
