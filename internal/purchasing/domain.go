package purchasing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order lifecycle statuses.
type OrderStatus string

const (
	OrderStatusDraft             OrderStatus = "DRAFT"
	OrderStatusApproved          OrderStatus = "APPROVED"
	OrderStatusPartiallyReceived OrderStatus = "PARTIALLY_RECEIVED"
	OrderStatusCompleted         OrderStatus = "COMPLETED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
)

// Goods receipt statuses. Receipts are written at posting time, so the only
// live status is POSTED; the column exists for parity with the order flow.
type ReceiptStatus string

const (
	ReceiptStatusPosted ReceiptStatus = "POSTED"
)

// PurchaseOrder is a plain snapshot of the order aggregate. Mutation happens
// through the pure transition functions, never on the struct itself.
type PurchaseOrder struct {
	ID           int64
	Number       string
	SupplierID   int64
	Status       OrderStatus
	OrderDate    time.Time
	ApprovedDate *time.Time
	TotalAmount  decimal.Decimal
	Lines        []OrderLine
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderLine belongs exclusively to its order. Lines are unique per
// (order, product); the surrogate id is what receipt lines reference.
type OrderLine struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	OrderedQty  decimal.Decimal
	ReceivedQty decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Outstanding returns the quantity still to be received on this line.
func (l OrderLine) Outstanding() decimal.Decimal {
	return l.OrderedQty.Sub(l.ReceivedQty)
}

// GoodsReceipt records a physical delivery against an approved order.
// Immutable once posted.
type GoodsReceipt struct {
	ID              int64
	Number          string
	PurchaseOrderID int64
	WarehouseID     int64
	Status          ReceiptStatus
	ReceiptDate     time.Time
	Lines           []ReceiptLine
	CreatedAt       time.Time
}

// ReceiptLine captures the received quantity and the unit cost actually
// paid, which seeds the FIFO cost layer.
type ReceiptLine struct {
	ID          int64
	ReceiptID   int64
	OrderLineID int64
	ProductID   int64
	ReceivedQty decimal.Decimal
	UnitCost    decimal.Decimal
}

// OrderListItem is a flattened row for order listings.
type OrderListItem struct {
	ID           int64
	Number       string
	SupplierID   int64
	SupplierName string
	Status       OrderStatus
	OrderDate    time.Time
	TotalAmount  decimal.Decimal
}

// ReceiptListItem is a flattened row for receipt listings.
type ReceiptListItem struct {
	ID            int64
	Number        string
	OrderNumber   string
	WarehouseID   int64
	WarehouseName string
	ReceiptDate   time.Time
}

// ListFilters narrows order and receipt listings.
type ListFilters struct {
	Status     OrderStatus
	SupplierID int64
	Search     string
	Limit      int
	Offset     int
}
