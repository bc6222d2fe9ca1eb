package model

import (
	"time"

	"github.com/google/uuid"
)

// StockCiudad is one cell of the per-city ledger: the quantity of a SKU held
// in a city. Ciudad is always stored normalized (see internal/normalize).
// Rows are mutated exclusively through the stock service, never directly.
type StockCiudad struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Ciudad    string    `gorm:"uniqueIndex:idx_stock_ciudad_sku;not null"`
	Sku       string    `gorm:"uniqueIndex:idx_stock_ciudad_sku;not null"`
	Cantidad  int       `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides GORM's pluralization (stock_ciudads → stock_ciudades).
func (StockCiudad) TableName() string { return "stock_ciudades" }
