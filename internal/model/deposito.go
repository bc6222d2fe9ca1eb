package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deposito groups settled sales of one city into a bank deposit.
// Estado: "pendiente" | "confirmado".
//
// CodigoLote (client-generated batch id) is the uniqueness key, NOT
// (ciudad, fecha): several legitimate deposits on the same city and day are
// a supported case.
type Deposito struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CodigoLote string          `gorm:"uniqueIndex;not null"`
	Ciudad     string          `gorm:"not null;index:idx_depositos_ciudad_fecha"`
	Fecha      time.Time       `gorm:"type:date;not null;index:idx_depositos_ciudad_fecha"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Estado     string          `gorm:"type:varchar(20);not null;default:'pendiente'"`

	ConfirmadoAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Ventas []Venta `gorm:"foreignKey:DepositoID"`
}
