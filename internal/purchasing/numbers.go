package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SequenceNumbers generates document numbers from Postgres sequences. The
// sequence guarantees uniqueness even when the daily counter is shared by
// documents created on different days.
type SequenceNumbers struct {
	pool *pgxpool.Pool
}

// NewSequenceNumbers constructs a generator over the given pool.
func NewSequenceNumbers(pool *pgxpool.Pool) *SequenceNumbers {
	return &SequenceNumbers{pool: pool}
}

// NextOrderNumber returns the next number in the PO-YYYYMMDD-NNN series.
func (g *SequenceNumbers) NextOrderNumber(ctx context.Context, at time.Time) (string, error) {
	return g.next(ctx, "purchase_order_seq", "PO", at)
}

// NextReceiptNumber returns the next number in the GR-YYYYMMDD-NNN series.
func (g *SequenceNumbers) NextReceiptNumber(ctx context.Context, at time.Time) (string, error) {
	return g.next(ctx, "goods_receipt_seq", "GR", at)
}

func (g *SequenceNumbers) next(ctx context.Context, seq, prefix string, at time.Time) (string, error) {
	var n int64
	if err := g.pool.QueryRow(ctx, `SELECT nextval($1)`, seq).Scan(&n); err != nil {
		return "", fmt.Errorf("purchasing: next %s number: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%s-%03d", prefix, at.UTC().Format("20060102"), n), nil
}
