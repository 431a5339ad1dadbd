package costing

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates inventory ledger movement types.
type TransactionType string

const (
	TransactionPurchase    TransactionType = "PURCHASE"
	TransactionSale        TransactionType = "SALE"
	TransactionAdjustment  TransactionType = "ADJUSTMENT"
	TransactionTransferOut TransactionType = "TRANSFER_OUT"
	TransactionTransferIn  TransactionType = "TRANSFER_IN"
	TransactionReturn      TransactionType = "RETURN"
)

// Inbound reports whether the type adds stock.
func (t TransactionType) Inbound() bool {
	switch t {
	case TransactionPurchase, TransactionTransferIn, TransactionReturn:
		return true
	}
	return false
}

// Known reports whether the type is a valid ledger movement type.
func (t TransactionType) Known() bool {
	switch t {
	case TransactionPurchase, TransactionSale, TransactionAdjustment,
		TransactionTransferOut, TransactionTransferIn, TransactionReturn:
		return true
	}
	return false
}

// CostLayer records the remaining quantity and unit cost of a specific
// goods-receipt line. Layers are never deleted; RemainingQty only decreases.
type CostLayer struct {
	ID                  int64
	ProductID           int64
	WarehouseID         int64
	SourceReceiptLineID int64
	RemainingQty        decimal.Decimal
	UnitCost            decimal.Decimal
	CreatedAt           time.Time
}

// Closed is derived: a layer is closed once fully consumed.
func (l CostLayer) Closed() bool {
	return l.RemainingQty.Sign() <= 0
}

// LedgerEntry is one immutable row of the inventory movement log. Exactly one
// of QuantityIn/QuantityOut is positive; the other is zero.
type LedgerEntry struct {
	ID              int64
	ProductID       int64
	WarehouseID     int64
	Type            TransactionType
	ReferenceID     int64
	ReferenceType   string
	QuantityIn      decimal.Decimal
	QuantityOut     decimal.Decimal
	TotalCost       decimal.Decimal
	TransactionDate time.Time
}

// LedgerFilter narrows ledger listings.
type LedgerFilter struct {
	ProductID   int64
	WarehouseID int64
	Type        TransactionType
	From        time.Time
	To          time.Time
	Limit       int
}

// OnHand summarises the ledger balance and open-layer value for one
// (product, warehouse) pair.
type OnHand struct {
	ProductID   int64
	WarehouseID int64
	Quantity    decimal.Decimal
	LayerValue  decimal.Decimal
}
