package model

import (
	"time"

	"github.com/google/uuid"
)

// Despacho is a shipment of stock from the central warehouse to a city.
// Estado: "pendiente" | "confirmado". Creating a dispatch has no stock
// effect; confirming it increments city stock exactly once (see
// DespachoAplicado).
type Despacho struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Ciudad    string    `gorm:"not null;index"`
	Fecha     time.Time `gorm:"type:date;not null"`
	Estado    string    `gorm:"type:varchar(20);not null;default:'pendiente'"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []DespachoItem `gorm:"foreignKey:DespachoID"`
}

// DespachoItem is one (sku, cantidad) line of a dispatch.
type DespachoItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DespachoID uuid.UUID `gorm:"type:uuid;not null;index"`
	Sku        string    `gorm:"not null"`
	Cantidad   int       `gorm:"not null"`
}

// DespachoAplicado is the ledger's idempotency set: one row per dispatch id
// whose stock increments have already been applied. The row is inserted in
// the same transaction as the increments, so a retried confirmation that
// finds the row is a no-op.
type DespachoAplicado struct {
	DespachoID uuid.UUID `gorm:"type:uuid;primaryKey"`
	AplicadoAt time.Time `gorm:"not null"`
}

// TableName overrides GORM's default pluralization.
func (DespachoAplicado) TableName() string { return "despachos_aplicados" }
