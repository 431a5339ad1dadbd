package purchasing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/atlas-ims/atlas-ims/internal/costing"
	"github.com/atlas-ims/atlas-ims/internal/shared"
)

// memRepo is an in-memory RepositoryPort/TxRepository for service tests.
// WithTx runs the callback directly; the service fails before writing on
// every rejected path, so rollback simulation is not needed here.
type memRepo struct {
	orders     map[int64]*PurchaseOrder
	receipts   map[int64]*GoodsReceipt
	stock      *memStock
	nextOrder  int64
	nextLine   int64
	nextRcpt   int64
	nextRcptLn int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		orders:   map[int64]*PurchaseOrder{},
		receipts: map[int64]*GoodsReceipt{},
		stock:    newMemStock(),
	}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) Stock() costing.TxStore { return m.stock }

func (m *memRepo) GetOrderForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return PurchaseOrder{}, fmt.Errorf("order %d: %w", id, shared.ErrNotFound)
	}
	out := *o
	out.Lines = append([]OrderLine(nil), o.Lines...)
	return out, nil
}

func (m *memRepo) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return m.GetOrderForUpdate(ctx, id)
}

func (m *memRepo) InsertOrder(ctx context.Context, o PurchaseOrder) (int64, error) {
	m.nextOrder++
	o.ID = m.nextOrder
	o.Version = 1
	o.Lines = nil
	m.orders[o.ID] = &o
	return o.ID, nil
}

func (m *memRepo) UpdateOrderHeader(ctx context.Context, o PurchaseOrder) error {
	cur, ok := m.orders[o.ID]
	if !ok {
		return fmt.Errorf("order %d: %w", o.ID, shared.ErrNotFound)
	}
	if cur.Version != o.Version {
		return fmt.Errorf("order %s: %w", o.Number, shared.ErrConflict)
	}
	lines := cur.Lines
	*cur = o
	cur.Lines = lines
	cur.Version = o.Version + 1
	return nil
}

func (m *memRepo) ReplaceOrderLines(ctx context.Context, orderID int64, lines []OrderLine) ([]OrderLine, error) {
	o, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", orderID, shared.ErrNotFound)
	}
	out := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		m.nextLine++
		l.ID = m.nextLine
		l.OrderID = orderID
		out = append(out, l)
	}
	o.Lines = append([]OrderLine(nil), out...)
	return out, nil
}

func (m *memRepo) UpdateOrderLineReceived(ctx context.Context, lineID int64, receivedQty decimal.Decimal) error {
	for _, o := range m.orders {
		for i := range o.Lines {
			if o.Lines[i].ID == lineID {
				o.Lines[i].ReceivedQty = receivedQty
				return nil
			}
		}
	}
	return fmt.Errorf("line %d: %w", lineID, shared.ErrNotFound)
}

func (m *memRepo) InsertReceipt(ctx context.Context, gr GoodsReceipt) (GoodsReceipt, error) {
	m.nextRcpt++
	gr.ID = m.nextRcpt
	gr.CreatedAt = time.Now()
	for i := range gr.Lines {
		m.nextRcptLn++
		gr.Lines[i].ID = m.nextRcptLn
		gr.Lines[i].ReceiptID = gr.ID
	}
	stored := gr
	stored.Lines = append([]ReceiptLine(nil), gr.Lines...)
	m.receipts[gr.ID] = &stored
	return gr, nil
}

func (m *memRepo) GetReceipt(ctx context.Context, id int64) (GoodsReceipt, error) {
	gr, ok := m.receipts[id]
	if !ok {
		return GoodsReceipt{}, fmt.Errorf("receipt %d: %w", id, shared.ErrNotFound)
	}
	return *gr, nil
}

func (m *memRepo) ListOrders(ctx context.Context, f ListFilters) ([]OrderListItem, error) {
	var items []OrderListItem
	for _, o := range m.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		items = append(items, OrderListItem{
			ID: o.ID, Number: o.Number, SupplierID: o.SupplierID,
			Status: o.Status, OrderDate: o.OrderDate, TotalAmount: o.TotalAmount,
		})
	}
	return items, nil
}

func (m *memRepo) ListReceipts(ctx context.Context, f ListFilters) ([]ReceiptListItem, error) {
	var items []ReceiptListItem
	for _, gr := range m.receipts {
		items = append(items, ReceiptListItem{ID: gr.ID, Number: gr.Number, WarehouseID: gr.WarehouseID})
	}
	return items, nil
}

// memStock is an in-memory costing.TxStore shared with the costing tests'
// expectations: layers keep insertion order, the ledger is append-only.
type memStock struct {
	layers  []costing.CostLayer
	ledger  []costing.LedgerEntry
	nextID  int64
	nextLed int64
}

func newMemStock() *memStock { return &memStock{} }

func (m *memStock) OpenLayer(ctx context.Context, layer costing.CostLayer) (int64, error) {
	m.nextID++
	layer.ID = m.nextID
	m.layers = append(m.layers, layer)
	return layer.ID, nil
}

func (m *memStock) LockOpenLayers(ctx context.Context, productID, warehouseID int64) ([]costing.CostLayer, error) {
	var out []costing.CostLayer
	for _, l := range m.layers {
		if l.ProductID == productID && l.WarehouseID == warehouseID && !l.Closed() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStock) ReduceLayer(ctx context.Context, layerID int64, newRemaining decimal.Decimal) error {
	for i := range m.layers {
		if m.layers[i].ID == layerID {
			m.layers[i].RemainingQty = newRemaining
			return nil
		}
	}
	return fmt.Errorf("layer %d: %w", layerID, shared.ErrNotFound)
}

func (m *memStock) AppendEntry(ctx context.Context, entry costing.LedgerEntry) (int64, error) {
	m.nextLed++
	entry.ID = m.nextLed
	m.ledger = append(m.ledger, entry)
	return entry.ID, nil
}

type stubNumbers struct{ orders, receipts int }

func (s *stubNumbers) NextOrderNumber(ctx context.Context, at time.Time) (string, error) {
	s.orders++
	return fmt.Sprintf("PO-%s-%03d", at.Format("20060102"), s.orders), nil
}

func (s *stubNumbers) NextReceiptNumber(ctx context.Context, at time.Time) (string, error) {
	s.receipts++
	return fmt.Sprintf("GR-%s-%03d", at.Format("20060102"), s.receipts), nil
}

type stubPrices map[int64]decimal.Decimal

func (p stubPrices) UnitPrice(ctx context.Context, supplierID, productID int64) (decimal.Decimal, error) {
	price, ok := p[productID]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price for product %d: %w", productID, shared.ErrValidation)
	}
	return price, nil
}

type stubCatalog struct{}

func (stubCatalog) SupplierExists(ctx context.Context, id int64) (bool, error)  { return id < 100, nil }
func (stubCatalog) ProductExists(ctx context.Context, id int64) (bool, error)   { return id < 100, nil }
func (stubCatalog) WarehouseExists(ctx context.Context, id int64) (bool, error) { return id < 100, nil }

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(logger, repo, &stubNumbers{},
		stubPrices{1: decimal.RequireFromString("5.00"), 2: decimal.RequireFromString("5.50")},
		stubCatalog{})
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func createApprovedOrder(t *testing.T, svc *Service) PurchaseOrder {
	t.Helper()
	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 1,
		Lines: []CreateOrderLine{
			{ProductID: 1, OrderedQty: dec("10")},
			{ProductID: 2, OrderedQty: dec("4")},
		},
	})
	require.NoError(t, err)
	approved, err := svc.ApproveOrder(context.Background(), order.ID)
	require.NoError(t, err)
	return approved
}

func TestCreateOrderPricesFromSupplierList(t *testing.T) {
	svc, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 1,
		Lines: []CreateOrderLine{
			{ProductID: 1, OrderedQty: dec("10")},
			{ProductID: 2, OrderedQty: dec("4")},
		},
	})
	require.NoError(t, err)

	require.Equal(t, OrderStatusDraft, order.Status)
	require.Equal(t, "PO-20260310-001", order.Number)
	require.Len(t, order.Lines, 2)
	require.True(t, order.Lines[0].UnitPrice.Equal(dec("5.00")))
	require.True(t, order.Lines[1].UnitPrice.Equal(dec("5.50")))
	// 10*5.00 + 4*5.50 = 72.00
	require.True(t, order.TotalAmount.Equal(dec("72.00")), "total %s", order.TotalAmount)
}

func TestCreateOrderMissingPriceFails(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 1,
		Lines:      []CreateOrderLine{{ProductID: 3, OrderedQty: dec("1")}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateOrderUnknownSupplierFails(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 999,
		Lines:      []CreateOrderLine{{ProductID: 1, OrderedQty: dec("1")}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateOrderUnknownProductFails(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 1,
		Lines:      []CreateOrderLine{{ProductID: 999, OrderedQty: dec("1")}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateOrderDuplicateProductRejected(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 1,
		Lines: []CreateOrderLine{
			{ProductID: 1, OrderedQty: dec("3")},
			{ProductID: 1, OrderedQty: dec("5")},
		},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.orders)
}

func TestUpdateOrderReconcilesLines(t *testing.T) {
	svc, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 1,
		Lines: []CreateOrderLine{
			{ProductID: 1, OrderedQty: dec("10")},
			{ProductID: 2, OrderedQty: dec("4")},
		},
	})
	require.NoError(t, err)

	// Drop product 2, change product 1's qty, add product 1-priced line again.
	price := dec("9.99")
	updated, err := svc.UpdateOrder(context.Background(), order.ID, UpdateOrderInput{
		SupplierID: 1,
		Version:    order.Version,
		Lines: []CreateOrderLine{
			{ProductID: 1, OrderedQty: dec("6"), UnitPrice: &price},
		},
	})
	require.NoError(t, err)

	require.Len(t, updated.Lines, 1)
	require.Equal(t, int64(1), updated.Lines[0].ProductID)
	require.True(t, updated.Lines[0].OrderedQty.Equal(dec("6")))
	require.True(t, updated.TotalAmount.Equal(dec("59.94")), "total %s", updated.TotalAmount)
}

func TestUpdateOrderStaleVersionConflicts(t *testing.T) {
	svc, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 1,
		Lines:      []CreateOrderLine{{ProductID: 1, OrderedQty: dec("10")}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateOrder(context.Background(), order.ID, UpdateOrderInput{
		SupplierID: 1,
		Version:    order.Version + 7,
		Lines:      []CreateOrderLine{{ProductID: 1, OrderedQty: dec("5")}},
	})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateApprovedOrderRejected(t *testing.T) {
	svc, _ := newTestService(t)
	order := createApprovedOrder(t, svc)

	_, err := svc.UpdateOrder(context.Background(), order.ID, UpdateOrderInput{
		SupplierID: 1,
		Lines:      []CreateOrderLine{{ProductID: 1, OrderedQty: dec("5")}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestFullReceiptCompletesOrder(t *testing.T) {
	svc, repo := newTestService(t)
	order := createApprovedOrder(t, svc)

	receipt, err := svc.PostGoodsReceipt(context.Background(), PostReceiptInput{
		PurchaseOrderID: order.ID,
		WarehouseID:     7,
		Lines: []PostReceiptLine{
			{OrderLineID: order.Lines[0].ID, ReceivedQty: dec("10")},
			{OrderLineID: order.Lines[1].ID, ReceivedQty: dec("4")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "GR-20260310-001", receipt.Number)
	require.Len(t, receipt.Lines, 2)
	// Unit cost defaults to the order line price.
	require.True(t, receipt.Lines[0].UnitCost.Equal(dec("5.00")))

	stored, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusCompleted, stored.Status)
	require.True(t, stored.Lines[0].ReceivedQty.Equal(dec("10")))

	// One cost layer and one inbound ledger row per receipt line.
	require.Len(t, repo.stock.layers, 2)
	require.Len(t, repo.stock.ledger, 2)
	layer := repo.stock.layers[0]
	require.Equal(t, receipt.Lines[0].ID, layer.SourceReceiptLineID)
	require.True(t, layer.RemainingQty.Equal(dec("10")))
	entry := repo.stock.ledger[0]
	require.Equal(t, costing.TransactionPurchase, entry.Type)
	require.True(t, entry.QuantityIn.Equal(dec("10")))
	require.True(t, entry.QuantityOut.IsZero())
	require.True(t, entry.TotalCost.Equal(dec("50.00")))
	require.Equal(t, receipt.ID, entry.ReferenceID)
}

func TestPartialThenFinalReceipt(t *testing.T) {
	svc, repo := newTestService(t)
	order := createApprovedOrder(t, svc)

	_, err := svc.PostGoodsReceipt(context.Background(), PostReceiptInput{
		PurchaseOrderID: order.ID,
		WarehouseID:     7,
		Lines:           []PostReceiptLine{{OrderLineID: order.Lines[0].ID, ReceivedQty: dec("6")}},
	})
	require.NoError(t, err)

	stored, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusPartiallyReceived, stored.Status)

	_, err = svc.PostGoodsReceipt(context.Background(), PostReceiptInput{
		PurchaseOrderID: order.ID,
		WarehouseID:     7,
		Lines: []PostReceiptLine{
			{OrderLineID: order.Lines[0].ID, ReceivedQty: dec("4")},
			{OrderLineID: order.Lines[1].ID, ReceivedQty: dec("4")},
		},
	})
	require.NoError(t, err)

	stored, err = svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusCompleted, stored.Status)
	require.Len(t, repo.stock.layers, 3)
}

func TestOverReceiptRejectedAndNothingWritten(t *testing.T) {
	svc, repo := newTestService(t)
	order := createApprovedOrder(t, svc)

	_, err := svc.PostGoodsReceipt(context.Background(), PostReceiptInput{
		PurchaseOrderID: order.ID,
		WarehouseID:     7,
		Lines:           []PostReceiptLine{{OrderLineID: order.Lines[0].ID, ReceivedQty: dec("11")}},
	})
	require.ErrorIs(t, err, shared.ErrOverReceipt)

	stored, err := svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, OrderStatusApproved, stored.Status)
	require.True(t, stored.Lines[0].ReceivedQty.IsZero())
	require.Empty(t, repo.stock.layers)
	require.Empty(t, repo.stock.ledger)
}

func TestOverReceiptAcrossReceiptsRejected(t *testing.T) {
	svc, _ := newTestService(t)
	order := createApprovedOrder(t, svc)

	_, err := svc.PostGoodsReceipt(context.Background(), PostReceiptInput{
		PurchaseOrderID: order.ID,
		WarehouseID:     7,
		Lines:           []PostReceiptLine{{OrderLineID: order.Lines[0].ID, ReceivedQty: dec("6")}},
	})
	require.NoError(t, err)

	_, err = svc.PostGoodsReceipt(context.Background(), PostReceiptInput{
		PurchaseOrderID: order.ID,
		WarehouseID:     7,
		Lines:           []PostReceiptLine{{OrderLineID: order.Lines[0].ID, ReceivedQty: dec("5")}},
	})
	require.ErrorIs(t, err, shared.ErrOverReceipt)
}

func TestReceiptAgainstDraftRejected(t *testing.T) {
	svc, _ := newTestService(t)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		SupplierID: 1,
		Lines:      []CreateOrderLine{{ProductID: 1, OrderedQty: dec("10")}},
	})
	require.NoError(t, err)

	_, err = svc.PostGoodsReceipt(context.Background(), PostReceiptInput{
		PurchaseOrderID: order.ID,
		WarehouseID:     7,
		Lines:           []PostReceiptLine{{OrderLineID: order.Lines[0].ID, ReceivedQty: dec("1")}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestReceiptAgainstCancelledRejected(t *testing.T) {
	svc, _ := newTestService(t)
	order := createApprovedOrder(t, svc)

	_, err := svc.CancelOrder(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = svc.PostGoodsReceipt(context.Background(), PostReceiptInput{
		PurchaseOrderID: order.ID,
		WarehouseID:     7,
		Lines:           []PostReceiptLine{{OrderLineID: order.Lines[0].ID, ReceivedQty: dec("1")}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestReceiptForeignOrderLineRejected(t *testing.T) {
	svc, _ := newTestService(t)
	order := createApprovedOrder(t, svc)

	_, err := svc.PostGoodsReceipt(context.Background(), PostReceiptInput{
		PurchaseOrderID: order.ID,
		WarehouseID:     7,
		Lines:           []PostReceiptLine{{OrderLineID: 9999, ReceivedQty: dec("1")}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCancelCompletedOrderRejected(t *testing.T) {
	svc, _ := newTestService(t)
	order := createApprovedOrder(t, svc)

	_, err := svc.PostGoodsReceipt(context.Background(), PostReceiptInput{
		PurchaseOrderID: order.ID,
		WarehouseID:     7,
		Lines: []PostReceiptLine{
			{OrderLineID: order.Lines[0].ID, ReceivedQty: dec("10")},
			{OrderLineID: order.Lines[1].ID, ReceivedQty: dec("4")},
		},
	})
	require.NoError(t, err)

	_, err = svc.CancelOrder(context.Background(), order.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}
