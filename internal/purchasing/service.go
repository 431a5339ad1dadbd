package purchasing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atlas-ims/atlas-ims/internal/costing"
	"github.com/atlas-ims/atlas-ims/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	ListOrders(ctx context.Context, filters ListFilters) ([]OrderListItem, error)
	GetReceipt(ctx context.Context, id int64) (GoodsReceipt, error)
	ListReceipts(ctx context.Context, filters ListFilters) ([]ReceiptListItem, error)
}

// TxRepository is the write surface available inside one transaction.
// Stock returns a layer/ledger store bound to the same transaction, so
// posting a receipt commits order, receipt, layers and ledger atomically.
type TxRepository interface {
	GetOrderForUpdate(ctx context.Context, id int64) (PurchaseOrder, error)
	InsertOrder(ctx context.Context, o PurchaseOrder) (int64, error)
	UpdateOrderHeader(ctx context.Context, o PurchaseOrder) error
	ReplaceOrderLines(ctx context.Context, orderID int64, lines []OrderLine) ([]OrderLine, error)
	UpdateOrderLineReceived(ctx context.Context, lineID int64, receivedQty decimal.Decimal) error
	InsertReceipt(ctx context.Context, gr GoodsReceipt) (GoodsReceipt, error)
	Stock() costing.TxStore
}

// NumberGenerator hands out the next document number for a series.
type NumberGenerator interface {
	NextOrderNumber(ctx context.Context, at time.Time) (string, error)
	NextReceiptNumber(ctx context.Context, at time.Time) (string, error)
}

// PriceResolver looks up the supplier's current unit price for a product.
type PriceResolver interface {
	UnitPrice(ctx context.Context, supplierID, productID int64) (decimal.Decimal, error)
}

// CatalogPort verifies that referenced master data exists and is active.
type CatalogPort interface {
	SupplierExists(ctx context.Context, id int64) (bool, error)
	ProductExists(ctx context.Context, id int64) (bool, error)
	WarehouseExists(ctx context.Context, id int64) (bool, error)
}

// Service owns the purchase order lifecycle and goods receipt posting.
type Service struct {
	logger  *slog.Logger
	repo    RepositoryPort
	numbers NumberGenerator
	prices  PriceResolver
	catalog CatalogPort
	now     func() time.Time
}

// NewService constructs the purchasing service.
func NewService(logger *slog.Logger, repo RepositoryPort, numbers NumberGenerator, prices PriceResolver, catalog CatalogPort) *Service {
	return &Service{
		logger:  logger,
		repo:    repo,
		numbers: numbers,
		prices:  prices,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrderInput carries a new draft order. Lines without a unit price are
// priced from the supplier's price list.
type CreateOrderInput struct {
	SupplierID int64
	OrderDate  time.Time
	Lines      []CreateOrderLine
}

// CreateOrderLine is one requested line of a new order.
type CreateOrderLine struct {
	ProductID  int64
	OrderedQty decimal.Decimal
	UnitPrice  *decimal.Decimal
}

// CreateOrder validates the draft, resolves missing prices from the supplier
// price list and persists order plus lines in one transaction.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (PurchaseOrder, error) {
	if input.SupplierID == 0 {
		return PurchaseOrder{}, fmt.Errorf("purchasing: supplier required: %w", shared.ErrValidation)
	}
	if len(input.Lines) == 0 {
		return PurchaseOrder{}, fmt.Errorf("purchasing: order requires at least one line: %w", shared.ErrValidation)
	}
	ok, err := s.catalog.SupplierExists(ctx, input.SupplierID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !ok {
		return PurchaseOrder{}, fmt.Errorf("purchasing: supplier %d does not exist: %w", input.SupplierID, shared.ErrValidation)
	}

	patches, err := s.resolveLines(ctx, input.SupplierID, input.Lines)
	if err != nil {
		return PurchaseOrder{}, err
	}

	now := s.now()
	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = now
	}

	number, err := s.numbers.NextOrderNumber(ctx, now)
	if err != nil {
		return PurchaseOrder{}, err
	}

	draft := PurchaseOrder{
		Number:     number,
		SupplierID: input.SupplierID,
		Status:     OrderStatusDraft,
		OrderDate:  orderDate,
	}
	for _, p := range patches {
		draft.Lines = append(draft.Lines, OrderLine{
			ProductID:  p.ProductID,
			OrderedQty: p.OrderedQty,
			UnitPrice:  p.UnitPrice,
		})
	}
	draft.TotalAmount = totalAmount(draft.Lines)

	var created PurchaseOrder
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertOrder(ctx, draft)
		if err != nil {
			return err
		}
		draft.ID = id
		lines, err := tx.ReplaceOrderLines(ctx, id, draft.Lines)
		if err != nil {
			return err
		}
		created = draft
		created.Lines = lines
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	s.logger.Info("purchase order created",
		slog.String("number", created.Number),
		slog.Int64("supplier_id", created.SupplierID),
		slog.Int("lines", len(created.Lines)))
	return created, nil
}

// UpdateOrderInput replaces the mutable fields of a draft order.
type UpdateOrderInput struct {
	SupplierID int64
	OrderDate  time.Time
	Version    int64
	Lines      []CreateOrderLine
}

// UpdateOrder reconciles a draft order's header and lines against the desired
// state. Lines for products absent from the input are removed, matching ones
// updated, new ones appended.
func (s *Service) UpdateOrder(ctx context.Context, id int64, input UpdateOrderInput) (PurchaseOrder, error) {
	if input.SupplierID == 0 {
		return PurchaseOrder{}, fmt.Errorf("purchasing: supplier required: %w", shared.ErrValidation)
	}
	ok, err := s.catalog.SupplierExists(ctx, input.SupplierID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !ok {
		return PurchaseOrder{}, fmt.Errorf("purchasing: supplier %d does not exist: %w", input.SupplierID, shared.ErrValidation)
	}

	patches, err := s.resolveLines(ctx, input.SupplierID, input.Lines)
	if err != nil {
		return PurchaseOrder{}, err
	}

	var updated PurchaseOrder
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if input.Version != 0 && input.Version != current.Version {
			return fmt.Errorf("purchasing: order %s changed since it was read: %w", current.Number, shared.ErrConflict)
		}

		orderDate := input.OrderDate
		if orderDate.IsZero() {
			orderDate = current.OrderDate
		}
		next, err := reconcileLines(current, input.SupplierID, orderDate, patches)
		if err != nil {
			return err
		}

		if err := tx.UpdateOrderHeader(ctx, next); err != nil {
			return err
		}
		lines, err := tx.ReplaceOrderLines(ctx, next.ID, next.Lines)
		if err != nil {
			return err
		}
		updated = next
		updated.Lines = lines
		updated.Version = current.Version + 1
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}

	s.logger.Info("purchase order updated",
		slog.String("number", updated.Number),
		slog.Int("lines", len(updated.Lines)))
	return updated, nil
}

// ApproveOrder moves a draft order into the approved state.
func (s *Service) ApproveOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.transition(ctx, id, "approved", func(o PurchaseOrder) (PurchaseOrder, error) {
		return approveOrder(o, s.now())
	})
}

// CancelOrder cancels a draft or approved order. Terminal.
func (s *Service) CancelOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.transition(ctx, id, "cancelled", cancelOrder)
}

func (s *Service) transition(ctx context.Context, id int64, verb string, fn func(PurchaseOrder) (PurchaseOrder, error)) (PurchaseOrder, error) {
	var result PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if err := tx.UpdateOrderHeader(ctx, next); err != nil {
			return err
		}
		result = next
		result.Version = current.Version + 1
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.logger.Info("purchase order "+verb, slog.String("number", result.Number))
	return result, nil
}

// GetOrder fetches an order with its lines.
func (s *Service) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders lists orders matching the filters, newest first.
func (s *Service) ListOrders(ctx context.Context, filters ListFilters) ([]OrderListItem, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	return s.repo.ListOrders(ctx, filters)
}

// PostReceiptInput carries one goods receipt against an approved order.
type PostReceiptInput struct {
	PurchaseOrderID int64
	WarehouseID     int64
	ReceiptDate     time.Time
	Lines           []PostReceiptLine
}

// PostReceiptLine receives a quantity against one order line. A nil unit
// cost falls back to the order line's unit price.
type PostReceiptLine struct {
	OrderLineID int64
	ReceivedQty decimal.Decimal
	UnitCost    *decimal.Decimal
}

// PostGoodsReceipt posts a receipt: it re-reads the order under lock, applies
// the received quantities, writes the receipt document, opens one FIFO cost
// layer per line and appends one inbound ledger row per line. The whole
// posting is a single transaction; any failure leaves no trace.
func (s *Service) PostGoodsReceipt(ctx context.Context, input PostReceiptInput) (GoodsReceipt, error) {
	if input.PurchaseOrderID == 0 {
		return GoodsReceipt{}, fmt.Errorf("purchasing: purchase order required: %w", shared.ErrValidation)
	}
	if input.WarehouseID == 0 {
		return GoodsReceipt{}, fmt.Errorf("purchasing: warehouse required: %w", shared.ErrValidation)
	}
	if len(input.Lines) == 0 {
		return GoodsReceipt{}, fmt.Errorf("purchasing: receipt requires at least one line: %w", shared.ErrValidation)
	}
	ok, err := s.catalog.WarehouseExists(ctx, input.WarehouseID)
	if err != nil {
		return GoodsReceipt{}, err
	}
	if !ok {
		return GoodsReceipt{}, fmt.Errorf("purchasing: warehouse %d: %w", input.WarehouseID, shared.ErrNotFound)
	}

	now := s.now()
	receiptDate := input.ReceiptDate
	if receiptDate.IsZero() {
		receiptDate = now
	}

	number, err := s.numbers.NextReceiptNumber(ctx, now)
	if err != nil {
		return GoodsReceipt{}, err
	}

	var posted GoodsReceipt
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, input.PurchaseOrderID)
		if err != nil {
			return err
		}

		lineByID := make(map[int64]OrderLine, len(order.Lines))
		for _, l := range order.Lines {
			lineByID[l.ID] = l
		}

		inputs := make([]ReceiptLineInput, 0, len(input.Lines))
		for _, in := range input.Lines {
			orderLine, ok := lineByID[in.OrderLineID]
			if !ok {
				return fmt.Errorf("purchasing: order line %d does not belong to order %s: %w",
					in.OrderLineID, order.Number, shared.ErrValidation)
			}
			unitCost := orderLine.UnitPrice
			if in.UnitCost != nil {
				unitCost = *in.UnitCost
			}
			inputs = append(inputs, ReceiptLineInput{
				OrderLineID: in.OrderLineID,
				ReceivedQty: in.ReceivedQty,
				UnitCost:    unitCost,
			})
		}

		next, err := applyReceipt(order, inputs)
		if err != nil {
			return err
		}

		receipt := GoodsReceipt{
			Number:          number,
			PurchaseOrderID: order.ID,
			WarehouseID:     input.WarehouseID,
			Status:          ReceiptStatusPosted,
			ReceiptDate:     receiptDate,
		}
		for _, in := range inputs {
			receipt.Lines = append(receipt.Lines, ReceiptLine{
				OrderLineID: in.OrderLineID,
				ProductID:   lineByID[in.OrderLineID].ProductID,
				ReceivedQty: in.ReceivedQty,
				UnitCost:    in.UnitCost,
			})
		}
		receipt, err = tx.InsertReceipt(ctx, receipt)
		if err != nil {
			return err
		}

		stock := tx.Stock()
		for _, rl := range receipt.Lines {
			if _, err := stock.OpenLayer(ctx, costing.CostLayer{
				ProductID:           rl.ProductID,
				WarehouseID:         input.WarehouseID,
				SourceReceiptLineID: rl.ID,
				RemainingQty:        rl.ReceivedQty,
				UnitCost:            rl.UnitCost,
				CreatedAt:           receiptDate,
			}); err != nil {
				return err
			}
			entry, err := costing.NewEntry(costing.TransactionPurchase,
				rl.ProductID, input.WarehouseID,
				rl.ReceivedQty, decimal.Zero, rl.ReceivedQty.Mul(rl.UnitCost),
				receipt.ID, "GoodsReceipt", receiptDate)
			if err != nil {
				return err
			}
			if _, err := stock.AppendEntry(ctx, entry); err != nil {
				return err
			}
		}

		if err := tx.UpdateOrderHeader(ctx, next); err != nil {
			return err
		}
		for _, ol := range next.Lines {
			if err := tx.UpdateOrderLineReceived(ctx, ol.ID, ol.ReceivedQty); err != nil {
				return err
			}
		}

		posted = receipt
		return nil
	})
	if err != nil {
		return GoodsReceipt{}, err
	}

	s.logger.Info("goods receipt posted",
		slog.String("number", posted.Number),
		slog.Int64("purchase_order_id", posted.PurchaseOrderID),
		slog.Int("lines", len(posted.Lines)))
	return posted, nil
}

// GetReceipt fetches a receipt with its lines.
func (s *Service) GetReceipt(ctx context.Context, id int64) (GoodsReceipt, error) {
	return s.repo.GetReceipt(ctx, id)
}

// ListReceipts lists receipts matching the filters, newest first.
func (s *Service) ListReceipts(ctx context.Context, filters ListFilters) ([]ReceiptListItem, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	return s.repo.ListReceipts(ctx, filters)
}

// resolveLines validates products and fills in missing unit prices from the
// supplier price list. A missing price is a hard validation error rather
// than a silent zero.
func (s *Service) resolveLines(ctx context.Context, supplierID int64, lines []CreateOrderLine) ([]LinePatch, error) {
	patches := make([]LinePatch, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, in := range lines {
		if in.ProductID == 0 {
			return nil, fmt.Errorf("purchasing: line product required: %w", shared.ErrValidation)
		}
		if seen[in.ProductID] {
			return nil, fmt.Errorf("purchasing: product %d appears on more than one line: %w",
				in.ProductID, shared.ErrValidation)
		}
		seen[in.ProductID] = true
		if in.OrderedQty.Sign() <= 0 {
			return nil, fmt.Errorf("purchasing: ordered qty for product %d must be positive: %w",
				in.ProductID, shared.ErrValidation)
		}
		ok, err := s.catalog.ProductExists(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("purchasing: product %d does not exist: %w", in.ProductID, shared.ErrValidation)
		}

		price := decimal.Zero
		if in.UnitPrice != nil {
			price = *in.UnitPrice
		} else {
			price, err = s.prices.UnitPrice(ctx, supplierID, in.ProductID)
			if err != nil {
				return nil, err
			}
		}
		if price.Sign() < 0 {
			return nil, fmt.Errorf("purchasing: unit price for product %d must not be negative: %w",
				in.ProductID, shared.ErrValidation)
		}
		patches = append(patches, LinePatch{ProductID: in.ProductID, OrderedQty: in.OrderedQty, UnitPrice: price})
	}
	return patches, nil
}
