package prices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	internalShared "github.com/atlas-ims/atlas-ims/internal/shared"
)

type Repository interface {
	ListForSupplier(ctx context.Context, supplierID int64) ([]SupplierPrice, error)
	Create(ctx context.Context, price SupplierPrice) (SupplierPrice, error)
	Delete(ctx context.Context, id int64) error
	CurrentPrice(ctx context.Context, supplierID, productID int64, asOf time.Time) (decimal.Decimal, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) ListForSupplier(ctx context.Context, supplierID int64) ([]SupplierPrice, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, supplier_id, product_id, unit_price::text, effective_date, created_at
		FROM supplier_product_prices
		WHERE supplier_id = $1
		ORDER BY product_id ASC, effective_date DESC`,
		supplierID)
	if err != nil {
		return nil, fmt.Errorf("prices: list for supplier: %w", err)
	}
	defer rows.Close()

	var prices []SupplierPrice
	for rows.Next() {
		var p SupplierPrice
		var unitPrice string
		if err := rows.Scan(&p.ID, &p.SupplierID, &p.ProductID, &unitPrice, &p.EffectiveDate, &p.CreatedAt); err != nil {
			return nil, err
		}
		if p.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

func (r *repository) Create(ctx context.Context, price SupplierPrice) (SupplierPrice, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO supplier_product_prices (supplier_id, product_id, unit_price, effective_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		price.SupplierID, price.ProductID, price.UnitPrice.String(), price.EffectiveDate,
	).Scan(&price.ID, &price.CreatedAt)
	if err != nil {
		return SupplierPrice{}, fmt.Errorf("prices: create: %w", err)
	}
	return price, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM supplier_product_prices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("prices: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("price %d: %w", id, internalShared.ErrNotFound)
	}
	return nil
}

// CurrentPrice returns the newest price effective on or before asOf.
func (r *repository) CurrentPrice(ctx context.Context, supplierID, productID int64, asOf time.Time) (decimal.Decimal, error) {
	var unitPrice string
	err := r.db.QueryRow(ctx, `
		SELECT unit_price::text
		FROM supplier_product_prices
		WHERE supplier_id = $1 AND product_id = $2 AND effective_date <= $3
		ORDER BY effective_date DESC, id DESC
		LIMIT 1`,
		supplierID, productID, asOf).Scan(&unitPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("prices: supplier %d has no price for product %d: %w",
			supplierID, productID, internalShared.ErrValidation)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("prices: current price: %w", err)
	}
	return decimal.NewFromString(unitPrice)
}
