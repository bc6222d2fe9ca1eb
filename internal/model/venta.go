package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Delivery states.
const (
	VentaPendiente  = "pendiente"
	VentaConfirmada = "confirmado"
	VentaEntregada  = "entregada"
	VentaCancelada  = "cancelado"
)

// Payment states.
const (
	PagoPendiente = "pendiente"
	PagoCobrado   = "cobrado"
	PagoCancelado = "cancelado"
)

// Venta is one sale of a primary SKU plus an optional extra SKU.
// EstadoEntrega: pendiente → confirmado → {entregada | cancelado}.
// EstadoPago: pendiente → {cobrado | cancelado}.
// CodigoUnico is the client-supplied idempotency key: retried creations with
// the same code return the already stored sale.
type Venta struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CodigoUnico string    `gorm:"uniqueIndex;not null"`
	Fecha       time.Time `gorm:"type:date;not null;index"`
	Ciudad      string    `gorm:"not null;index"`

	Sku           string `gorm:"not null;index"`
	Cantidad      int    `gorm:"not null"`
	SkuExtra      *string
	CantidadExtra *int

	Precio           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Gasto            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	GastoCancelacion decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total            decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	EstadoEntrega string `gorm:"type:varchar(20);not null;default:'pendiente';index"`
	EstadoPago    string `gorm:"type:varchar(20);not null;default:'pendiente'"`

	VendedorID      uuid.UUID `gorm:"type:uuid;not null;index"`
	TelefonoCliente *string
	Notas           *string
	MetodoEntrega   string `gorm:"type:varchar(30);not null;default:'domicilio'"`

	MotivoCancelacion *string

	// DepositoID links a settled sale to exactly one deposit.
	DepositoID *uuid.UUID `gorm:"type:uuid;index"`

	ConfirmadoAt *time.Time
	EntregadoAt  *time.Time
	CanceladoAt  *time.Time
	CobradoAt    *time.Time
	// EliminadoDePendientesAt: nil means the sale is still in the
	// receivables list; set exactly once, at settlement.
	EliminadoDePendientesAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Vendedor *Usuario  `gorm:"foreignKey:VendedorID"`
	Deposito *Deposito `gorm:"foreignKey:DepositoID"`
}

// EnPendientes reports whether the sale is still in the receivables list.
func (v *Venta) EnPendientes() bool { return v.EliminadoDePendientesAt == nil }

// TotalCalculado recomputes the money total from the sale's own fields.
// Cancelled sales with a recorded cancellation expense settle at
// precio − gasto_cancelacion; every other case is precio − gasto.
// The stored Total must always equal this value.
func (v *Venta) TotalCalculado() decimal.Decimal {
	if v.EstadoEntrega == VentaCancelada && v.GastoCancelacion.IsPositive() {
		return v.Precio.Sub(v.GastoCancelacion)
	}
	return v.Precio.Sub(v.Gasto)
}
