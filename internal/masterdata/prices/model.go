package prices

import (
	"time"

	"github.com/shopspring/decimal"
)

// SupplierPrice is one price a supplier quotes for a product, effective from
// a given date. The current price is the newest effective row.
type SupplierPrice struct {
	ID            int64           `json:"id"`
	SupplierID    int64           `json:"supplier_id"`
	ProductID     int64           `json:"product_id"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	EffectiveDate time.Time       `json:"effective_date"`
	CreatedAt     time.Time       `json:"created_at"`
}
