package costing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atlas-ims/atlas-ims/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for layers and ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

// txStore runs layer/ledger writes against a caller-supplied transaction
// handle. Purchasing builds one over its own tx so receipt posting, layer
// openings and ledger rows commit as a single unit.
type txStore struct {
	q db.Executor
}

// NewTxStore returns a TxStore bound to the given query executor.
func NewTxStore(q db.Executor) TxStore {
	return &txStore{q: q}
}

func (t *txStore) OpenLayer(ctx context.Context, layer CostLayer) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO inventory_cost_layers
			(product_id, warehouse_id, source_receipt_line_id, remaining_qty, unit_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6::timestamptz, now()))
		RETURNING id`,
		layer.ProductID, layer.WarehouseID, nullID(layer.SourceReceiptLineID),
		layer.RemainingQty.String(), layer.UnitCost.String(), nullTime(layer.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("costing: open layer: %w", err)
	}
	return id, nil
}

func (t *txStore) LockOpenLayers(ctx context.Context, productID, warehouseID int64) ([]CostLayer, error) {
	rows, err := t.q.Query(ctx, `
		SELECT id, product_id, warehouse_id, COALESCE(source_receipt_line_id, 0),
			remaining_qty::text, unit_cost::text, created_at
		FROM inventory_cost_layers
		WHERE product_id = $1 AND warehouse_id = $2 AND remaining_qty > 0
		ORDER BY id ASC
		FOR UPDATE`,
		productID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("costing: lock open layers: %w", err)
	}
	defer rows.Close()
	return scanLayers(rows)
}

func (t *txStore) ReduceLayer(ctx context.Context, layerID int64, newRemaining decimal.Decimal) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE inventory_cost_layers
		SET remaining_qty = $1
		WHERE id = $2 AND remaining_qty >= $1`,
		newRemaining.String(), layerID)
	if err != nil {
		return fmt.Errorf("costing: reduce layer %d: %w", layerID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("costing: reduce layer %d: remaining qty would increase", layerID)
	}
	return nil
}

func (t *txStore) AppendEntry(ctx context.Context, entry LedgerEntry) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO inventory_ledger
			(product_id, warehouse_id, tx_type, reference_id, reference_type,
			 quantity_in, quantity_out, total_cost, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		entry.ProductID, entry.WarehouseID, string(entry.Type),
		entry.ReferenceID, entry.ReferenceType,
		entry.QuantityIn.String(), entry.QuantityOut.String(), entry.TotalCost.String(),
		entry.TransactionDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("costing: append ledger entry: %w", err)
	}
	return id, nil
}

// ListLayers lists layers oldest-first for a (product, warehouse) pair.
func (r *Repository) ListLayers(ctx context.Context, productID, warehouseID int64, includeClosed bool) ([]CostLayer, error) {
	query := `
		SELECT id, product_id, warehouse_id, COALESCE(source_receipt_line_id, 0),
			remaining_qty::text, unit_cost::text, created_at
		FROM inventory_cost_layers
		WHERE product_id = $1 AND warehouse_id = $2`
	if !includeClosed {
		query += ` AND remaining_qty > 0`
	}
	query += ` ORDER BY id ASC`

	rows, err := r.pool.Query(ctx, query, productID, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("costing: list layers: %w", err)
	}
	defer rows.Close()
	return scanLayers(rows)
}

// ListLedger lists ledger entries newest-first.
func (r *Repository) ListLedger(ctx context.Context, filter LedgerFilter) ([]LedgerEntry, error) {
	query := `
		SELECT id, product_id, warehouse_id, tx_type, reference_id, reference_type,
			quantity_in::text, quantity_out::text, total_cost::text, transaction_date
		FROM inventory_ledger
		WHERE 1=1`
	args := []any{}
	argNum := 1

	if filter.ProductID > 0 {
		query += fmt.Sprintf(` AND product_id = $%d`, argNum)
		args = append(args, filter.ProductID)
		argNum++
	}
	if filter.WarehouseID > 0 {
		query += fmt.Sprintf(` AND warehouse_id = $%d`, argNum)
		args = append(args, filter.WarehouseID)
		argNum++
	}
	if filter.Type != "" {
		query += fmt.Sprintf(` AND tx_type = $%d`, argNum)
		args = append(args, string(filter.Type))
		argNum++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(` AND transaction_date >= $%d`, argNum)
		args = append(args, filter.From)
		argNum++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(` AND transaction_date <= $%d`, argNum)
		args = append(args, filter.To)
		argNum++
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, argNum)
	args = append(args, filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("costing: list ledger: %w", err)
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var typ, in, out, cost string
		if err := rows.Scan(&e.ID, &e.ProductID, &e.WarehouseID, &typ, &e.ReferenceID,
			&e.ReferenceType, &in, &out, &cost, &e.TransactionDate); err != nil {
			return nil, err
		}
		e.Type = TransactionType(typ)
		if e.QuantityIn, err = decimal.NewFromString(in); err != nil {
			return nil, err
		}
		if e.QuantityOut, err = decimal.NewFromString(out); err != nil {
			return nil, err
		}
		if e.TotalCost, err = decimal.NewFromString(cost); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// OnHand returns the ledger balance (in minus out) and the open-layer value.
func (r *Repository) OnHand(ctx context.Context, productID, warehouseID int64) (OnHand, error) {
	var qty, value string
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT SUM(quantity_in - quantity_out) FROM inventory_ledger
				WHERE product_id = $1 AND warehouse_id = $2), 0)::text,
			COALESCE((SELECT SUM(remaining_qty * unit_cost) FROM inventory_cost_layers
				WHERE product_id = $1 AND warehouse_id = $2 AND remaining_qty > 0), 0)::text`,
		productID, warehouseID).Scan(&qty, &value)
	if err != nil {
		return OnHand{}, fmt.Errorf("costing: on hand: %w", err)
	}
	onHand := OnHand{ProductID: productID, WarehouseID: warehouseID}
	if onHand.Quantity, err = decimal.NewFromString(qty); err != nil {
		return OnHand{}, err
	}
	if onHand.LayerValue, err = decimal.NewFromString(value); err != nil {
		return OnHand{}, err
	}
	return onHand, nil
}

func scanLayers(rows pgx.Rows) ([]CostLayer, error) {
	var layers []CostLayer
	for rows.Next() {
		var l CostLayer
		var remaining, cost string
		if err := rows.Scan(&l.ID, &l.ProductID, &l.WarehouseID, &l.SourceReceiptLineID,
			&remaining, &cost, &l.CreatedAt); err != nil {
			return nil, err
		}
		var err error
		if l.RemainingQty, err = decimal.NewFromString(remaining); err != nil {
			return nil, err
		}
		if l.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	return layers, rows.Err()
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
