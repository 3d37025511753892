package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalogue entry checkout prices against.
type Product struct {
	ID        string          `json:"id" db:"id"`
	SKU       string          `json:"sku" db:"sku"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Category  string          `json:"category" db:"category"`
	Stock     int             `json:"stock" db:"stock"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}
