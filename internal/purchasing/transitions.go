package purchasing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-ims/atlas-ims/internal/shared"
)

// Pure state transitions over immutable order snapshots. Each function
// returns a new snapshot or an error kind; the input is never mutated.
// The service layer decides what to persist.

// LinePatch is the desired state of one line during an order update.
type LinePatch struct {
	ProductID  int64
	OrderedQty decimal.Decimal
	UnitPrice  decimal.Decimal
}

// ReceiptLineInput is one received line of a goods receipt posting.
type ReceiptLineInput struct {
	OrderLineID int64
	ReceivedQty decimal.Decimal
	UnitCost    decimal.Decimal
}

// approveOrder transitions DRAFT to APPROVED. One-way.
func approveOrder(o PurchaseOrder, now time.Time) (PurchaseOrder, error) {
	if o.Status != OrderStatusDraft {
		return PurchaseOrder{}, fmt.Errorf("purchasing: order %s is %s, only draft orders can be approved: %w",
			o.Number, o.Status, shared.ErrInvalidState)
	}
	if len(o.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("purchasing: order %s has no lines: %w", o.Number, shared.ErrValidation)
	}
	next := cloneOrder(o)
	next.Status = OrderStatusApproved
	approvedAt := now.UTC()
	next.ApprovedDate = &approvedAt
	return next, nil
}

// cancelOrder transitions DRAFT or APPROVED to the terminal CANCELLED.
func cancelOrder(o PurchaseOrder) (PurchaseOrder, error) {
	if o.Status != OrderStatusDraft && o.Status != OrderStatusApproved {
		return PurchaseOrder{}, fmt.Errorf("purchasing: order %s is %s and cannot be cancelled: %w",
			o.Number, o.Status, shared.ErrInvalidState)
	}
	next := cloneOrder(o)
	next.Status = OrderStatusCancelled
	return next, nil
}

// reconcileLines applies a draft update: lines absent from the patch set are
// removed, lines matching by product are updated in place, the rest are
// appended. The total is recomputed as the final step.
func reconcileLines(o PurchaseOrder, supplierID int64, orderDate time.Time, patches []LinePatch) (PurchaseOrder, error) {
	if o.Status != OrderStatusDraft {
		return PurchaseOrder{}, fmt.Errorf("purchasing: order %s is %s, only draft orders can be updated: %w",
			o.Number, o.Status, shared.ErrInvalidState)
	}
	if len(patches) == 0 {
		return PurchaseOrder{}, fmt.Errorf("purchasing: order update requires at least one line: %w", shared.ErrValidation)
	}
	products := make(map[int64]bool, len(patches))
	for _, p := range patches {
		if p.ProductID == 0 {
			return PurchaseOrder{}, fmt.Errorf("purchasing: line product required: %w", shared.ErrValidation)
		}
		if p.OrderedQty.Sign() <= 0 {
			return PurchaseOrder{}, fmt.Errorf("purchasing: ordered qty for product %d must be positive: %w",
				p.ProductID, shared.ErrValidation)
		}
		if products[p.ProductID] {
			return PurchaseOrder{}, fmt.Errorf("purchasing: product %d appears on more than one line: %w",
				p.ProductID, shared.ErrValidation)
		}
		products[p.ProductID] = true
	}

	next := cloneOrder(o)
	next.SupplierID = supplierID
	next.OrderDate = orderDate

	byProduct := make(map[int64]LinePatch, len(patches))
	for _, p := range patches {
		byProduct[p.ProductID] = p
	}

	// Keep matching lines in their existing position, drop the rest.
	kept := next.Lines[:0]
	seen := make(map[int64]bool, len(next.Lines))
	for _, line := range next.Lines {
		p, ok := byProduct[line.ProductID]
		if !ok {
			continue
		}
		line.OrderedQty = p.OrderedQty
		line.UnitPrice = p.UnitPrice
		kept = append(kept, line)
		seen[line.ProductID] = true
	}
	next.Lines = kept

	// Append patches with no existing line, preserving patch order.
	for _, p := range patches {
		if seen[p.ProductID] {
			continue
		}
		next.Lines = append(next.Lines, OrderLine{
			OrderID:    next.ID,
			ProductID:  p.ProductID,
			OrderedQty: p.OrderedQty,
			UnitPrice:  p.UnitPrice,
		})
		seen[p.ProductID] = true
	}

	next.TotalAmount = totalAmount(next.Lines)
	return next, nil
}

// applyReceipt increments received quantities and recomputes the order
// status: COMPLETED when every line is fully received, PARTIALLY_RECEIVED
// otherwise. Guards receipts against draft, completed and cancelled orders
// and against over-receipt per line.
func applyReceipt(o PurchaseOrder, inputs []ReceiptLineInput) (PurchaseOrder, error) {
	if o.Status != OrderStatusApproved && o.Status != OrderStatusPartiallyReceived {
		return PurchaseOrder{}, fmt.Errorf("purchasing: order %s is %s and cannot receive goods: %w",
			o.Number, o.Status, shared.ErrInvalidState)
	}
	if len(inputs) == 0 {
		return PurchaseOrder{}, fmt.Errorf("purchasing: receipt requires at least one line: %w", shared.ErrValidation)
	}

	next := cloneOrder(o)
	byID := make(map[int64]int, len(next.Lines))
	for i, line := range next.Lines {
		byID[line.ID] = i
	}

	for _, in := range inputs {
		if in.ReceivedQty.Sign() <= 0 {
			return PurchaseOrder{}, fmt.Errorf("purchasing: received qty must be positive: %w", shared.ErrValidation)
		}
		if in.UnitCost.Sign() < 0 {
			return PurchaseOrder{}, fmt.Errorf("purchasing: unit cost must not be negative: %w", shared.ErrValidation)
		}
		i, ok := byID[in.OrderLineID]
		if !ok {
			return PurchaseOrder{}, fmt.Errorf("purchasing: order line %d does not belong to order %s: %w",
				in.OrderLineID, o.Number, shared.ErrValidation)
		}
		line := next.Lines[i]
		received := line.ReceivedQty.Add(in.ReceivedQty)
		if received.GreaterThan(line.OrderedQty) {
			return PurchaseOrder{}, fmt.Errorf("purchasing: product %d ordered %s, already received %s, cannot receive %s more: %w",
				line.ProductID, line.OrderedQty, line.ReceivedQty, in.ReceivedQty, shared.ErrOverReceipt)
		}
		next.Lines[i].ReceivedQty = received
	}

	next.Status = OrderStatusCompleted
	for _, line := range next.Lines {
		if line.ReceivedQty.LessThan(line.OrderedQty) {
			next.Status = OrderStatusPartiallyReceived
			break
		}
	}
	return next, nil
}

// totalAmount derives the order total from its lines.
func totalAmount(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.OrderedQty.Mul(l.UnitPrice))
	}
	return total
}

func cloneOrder(o PurchaseOrder) PurchaseOrder {
	next := o
	next.Lines = append([]OrderLine(nil), o.Lines...)
	if o.ApprovedDate != nil {
		approvedAt := *o.ApprovedDate
		next.ApprovedDate = &approvedAt
	}
	return next
}
