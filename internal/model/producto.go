package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is a catalog entry keyed by SKU.
// Sintetico=true marks bundles/virtual products that have no physical stock
// of their own.
type Producto struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Sku           string    `gorm:"uniqueIndex;not null"`
	Nombre        string    `gorm:"index;not null"`
	Descripcion   *string
	PrecioVenta   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CostoUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	GastoEntrega  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// StockCentral is the warehouse quantity still not dispatched to a city.
	StockCentral int  `gorm:"not null;default:0"`
	Sintetico    bool `gorm:"not null;default:false"`
	Activo       bool `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
