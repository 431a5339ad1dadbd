package products

import (
	"time"
)

// Product represents a stocked product
type Product struct {
	ID          int64      `json:"id"`
	SKU         string     `json:"sku"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	CategoryID  int64      `json:"category_id"`
	UnitID      int64      `json:"unit_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// ListItem is a product row joined with category and unit names.
type ListItem struct {
	Product
	CategoryName string `json:"category_name"`
	UnitName     string `json:"unit_name"`
}
