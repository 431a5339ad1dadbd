package purchasing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atlas-ims/atlas-ims/internal/costing"
	"github.com/atlas-ims/atlas-ims/internal/platform/db"
	"github.com/atlas-ims/atlas-ims/internal/shared"
)

// Repository provides PostgreSQL backed persistence for orders and receipts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps the callback in a repeatable-read transaction. The TxRepository
// handed to the callback shares the transaction with the costing TxStore it
// exposes via Stock.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

type txRepo struct {
	q pgx.Tx
}

func (t *txRepo) Stock() costing.TxStore {
	return costing.NewTxStore(t.q)
}

func (t *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	var o PurchaseOrder
	var status string
	var total string
	err := t.q.QueryRow(ctx, `
		SELECT id, number, supplier_id, status, order_date, approved_date,
			total_amount::text, version, created_at, updated_at
		FROM purchase_orders
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE`,
		id).Scan(&o.ID, &o.Number, &o.SupplierID, &status, &o.OrderDate, &o.ApprovedDate,
		&total, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, fmt.Errorf("purchasing: order %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("purchasing: get order for update: %w", err)
	}
	o.Status = OrderStatus(status)
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return PurchaseOrder{}, err
	}
	if o.Lines, err = loadOrderLines(ctx, t.q, id); err != nil {
		return PurchaseOrder{}, err
	}
	return o, nil
}

func (t *txRepo) InsertOrder(ctx context.Context, o PurchaseOrder) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO purchase_orders (number, supplier_id, status, order_date, total_amount, version)
		VALUES ($1, $2, $3, $4, $5, 1)
		RETURNING id`,
		o.Number, o.SupplierID, string(o.Status), o.OrderDate, o.TotalAmount.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("purchasing: insert order: %w", err)
	}
	return id, nil
}

// UpdateOrderHeader writes the mutable header fields and bumps the version.
// A zero row count means another writer got there first.
func (t *txRepo) UpdateOrderHeader(ctx context.Context, o PurchaseOrder) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE purchase_orders
		SET supplier_id = $1, status = $2, order_date = $3, approved_date = $4,
			total_amount = $5, version = version + 1, updated_at = now()
		WHERE id = $6 AND version = $7 AND deleted_at IS NULL`,
		o.SupplierID, string(o.Status), o.OrderDate, o.ApprovedDate,
		o.TotalAmount.String(), o.ID, o.Version)
	if err != nil {
		return fmt.Errorf("purchasing: update order header: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchasing: order %s changed since it was read: %w", o.Number, shared.ErrConflict)
	}
	return nil
}

// ReplaceOrderLines rewrites the full line set of a draft order and returns
// the lines with their assigned ids. Safe because only drafts are updated and
// draft lines are never referenced by receipts.
func (t *txRepo) ReplaceOrderLines(ctx context.Context, orderID int64, lines []OrderLine) ([]OrderLine, error) {
	if _, err := t.q.Exec(ctx, `DELETE FROM purchase_order_lines WHERE order_id = $1`, orderID); err != nil {
		return nil, fmt.Errorf("purchasing: clear order lines: %w", err)
	}
	out := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		l.OrderID = orderID
		err := t.q.QueryRow(ctx, `
			INSERT INTO purchase_order_lines (order_id, product_id, ordered_qty, received_qty, unit_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			orderID, l.ProductID, l.OrderedQty.String(), l.ReceivedQty.String(), l.UnitPrice.String(),
		).Scan(&l.ID)
		if err != nil {
			return nil, fmt.Errorf("purchasing: insert order line: %w", err)
		}
		out = append(out, l)
	}
	return out, nil
}

func (t *txRepo) UpdateOrderLineReceived(ctx context.Context, lineID int64, receivedQty decimal.Decimal) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE purchase_order_lines SET received_qty = $1 WHERE id = $2`,
		receivedQty.String(), lineID)
	if err != nil {
		return fmt.Errorf("purchasing: update received qty: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchasing: order line %d: %w", lineID, shared.ErrNotFound)
	}
	return nil
}

func (t *txRepo) InsertReceipt(ctx context.Context, gr GoodsReceipt) (GoodsReceipt, error) {
	err := t.q.QueryRow(ctx, `
		INSERT INTO goods_receipts (number, purchase_order_id, warehouse_id, status, receipt_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		gr.Number, gr.PurchaseOrderID, gr.WarehouseID, string(gr.Status), gr.ReceiptDate,
	).Scan(&gr.ID, &gr.CreatedAt)
	if err != nil {
		return GoodsReceipt{}, fmt.Errorf("purchasing: insert receipt: %w", err)
	}
	for i := range gr.Lines {
		gr.Lines[i].ReceiptID = gr.ID
		err := t.q.QueryRow(ctx, `
			INSERT INTO goods_receipt_lines (receipt_id, order_line_id, product_id, received_qty, unit_cost)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			gr.ID, gr.Lines[i].OrderLineID, gr.Lines[i].ProductID,
			gr.Lines[i].ReceivedQty.String(), gr.Lines[i].UnitCost.String(),
		).Scan(&gr.Lines[i].ID)
		if err != nil {
			return GoodsReceipt{}, fmt.Errorf("purchasing: insert receipt line: %w", err)
		}
	}
	return gr, nil
}

// GetOrder fetches one order with its lines.
func (r *Repository) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	var o PurchaseOrder
	var status, total string
	err := r.pool.QueryRow(ctx, `
		SELECT id, number, supplier_id, status, order_date, approved_date,
			total_amount::text, version, created_at, updated_at
		FROM purchase_orders
		WHERE id = $1 AND deleted_at IS NULL`,
		id).Scan(&o.ID, &o.Number, &o.SupplierID, &status, &o.OrderDate, &o.ApprovedDate,
		&total, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, fmt.Errorf("purchasing: order %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return PurchaseOrder{}, fmt.Errorf("purchasing: get order: %w", err)
	}
	o.Status = OrderStatus(status)
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return PurchaseOrder{}, err
	}
	if o.Lines, err = loadOrderLines(ctx, r.pool, id); err != nil {
		return PurchaseOrder{}, err
	}
	return o, nil
}

// ListOrders lists orders newest-first, joined with the supplier name.
func (r *Repository) ListOrders(ctx context.Context, filters ListFilters) ([]OrderListItem, error) {
	query := `
		SELECT o.id, o.number, o.supplier_id, COALESCE(s.name, ''), o.status,
			o.order_date, o.total_amount::text
		FROM purchase_orders o
		LEFT JOIN suppliers s ON s.id = o.supplier_id
		WHERE o.deleted_at IS NULL`
	args := []any{}
	argNum := 1

	if filters.Status != "" {
		query += fmt.Sprintf(` AND o.status = $%d`, argNum)
		args = append(args, string(filters.Status))
		argNum++
	}
	if filters.SupplierID > 0 {
		query += fmt.Sprintf(` AND o.supplier_id = $%d`, argNum)
		args = append(args, filters.SupplierID)
		argNum++
	}
	if filters.Search != "" {
		query += fmt.Sprintf(` AND o.number ILIKE $%d`, argNum)
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}
	query += fmt.Sprintf(` ORDER BY o.id DESC LIMIT $%d OFFSET $%d`, argNum, argNum+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("purchasing: list orders: %w", err)
	}
	defer rows.Close()

	var items []OrderListItem
	for rows.Next() {
		var it OrderListItem
		var status, total string
		if err := rows.Scan(&it.ID, &it.Number, &it.SupplierID, &it.SupplierName,
			&status, &it.OrderDate, &total); err != nil {
			return nil, err
		}
		it.Status = OrderStatus(status)
		if it.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetReceipt fetches one receipt with its lines.
func (r *Repository) GetReceipt(ctx context.Context, id int64) (GoodsReceipt, error) {
	var gr GoodsReceipt
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, number, purchase_order_id, warehouse_id, status, receipt_date, created_at
		FROM goods_receipts
		WHERE id = $1`,
		id).Scan(&gr.ID, &gr.Number, &gr.PurchaseOrderID, &gr.WarehouseID, &status,
		&gr.ReceiptDate, &gr.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return GoodsReceipt{}, fmt.Errorf("purchasing: receipt %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return GoodsReceipt{}, fmt.Errorf("purchasing: get receipt: %w", err)
	}
	gr.Status = ReceiptStatus(status)

	rows, err := r.pool.Query(ctx, `
		SELECT id, receipt_id, order_line_id, product_id, received_qty::text, unit_cost::text
		FROM goods_receipt_lines
		WHERE receipt_id = $1
		ORDER BY id ASC`,
		id)
	if err != nil {
		return GoodsReceipt{}, fmt.Errorf("purchasing: get receipt lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l ReceiptLine
		var qty, cost string
		if err := rows.Scan(&l.ID, &l.ReceiptID, &l.OrderLineID, &l.ProductID, &qty, &cost); err != nil {
			return GoodsReceipt{}, err
		}
		if l.ReceivedQty, err = decimal.NewFromString(qty); err != nil {
			return GoodsReceipt{}, err
		}
		if l.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return GoodsReceipt{}, err
		}
		gr.Lines = append(gr.Lines, l)
	}
	return gr, rows.Err()
}

// ListReceipts lists receipts newest-first, joined with order number and
// warehouse name.
func (r *Repository) ListReceipts(ctx context.Context, filters ListFilters) ([]ReceiptListItem, error) {
	query := `
		SELECT g.id, g.number, COALESCE(o.number, ''), g.warehouse_id,
			COALESCE(w.name, ''), g.receipt_date
		FROM goods_receipts g
		LEFT JOIN purchase_orders o ON o.id = g.purchase_order_id
		LEFT JOIN warehouses w ON w.id = g.warehouse_id
		WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.Search != "" {
		query += fmt.Sprintf(` AND (g.number ILIKE $%d OR o.number ILIKE $%d)`, argNum, argNum)
		args = append(args, "%"+filters.Search+"%")
		argNum++
	}
	query += fmt.Sprintf(` ORDER BY g.id DESC LIMIT $%d OFFSET $%d`, argNum, argNum+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("purchasing: list receipts: %w", err)
	}
	defer rows.Close()

	var items []ReceiptListItem
	for rows.Next() {
		var it ReceiptListItem
		if err := rows.Scan(&it.ID, &it.Number, &it.OrderNumber, &it.WarehouseID,
			&it.WarehouseName, &it.ReceiptDate); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadOrderLines(ctx context.Context, q rowQuerier, orderID int64) ([]OrderLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, ordered_qty::text, received_qty::text, unit_price::text
		FROM purchase_order_lines
		WHERE order_id = $1
		ORDER BY id ASC`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("purchasing: load order lines: %w", err)
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var l OrderLine
		var ordered, received, price string
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &ordered, &received, &price); err != nil {
			return nil, err
		}
		if l.OrderedQty, err = decimal.NewFromString(ordered); err != nil {
			return nil, err
		}
		if l.ReceivedQty, err = decimal.NewFromString(received); err != nil {
			return nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
