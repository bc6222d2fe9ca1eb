package model

import (
	"time"

	"github.com/google/uuid"
)

// MovimientoStock registra cada cambio de una celda (ciudad, sku) del ledger.
// Se crea al confirmar o cancelar ventas, al aplicar despachos y en ajustes
// manuales. Movements are NEVER modified or deleted.
type MovimientoStock struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Ciudad        string    `gorm:"not null;index:idx_mov_stock_cell"`
	Sku           string    `gorm:"not null;index:idx_mov_stock_cell"`
	Tipo          string    `gorm:"not null"` // "venta" | "restore_cancelacion" | "despacho" | "ajuste_manual" | "edicion"
	Cantidad      int       `gorm:"not null"` // positive = entrada, negative = salida
	StockAnterior int       `gorm:"not null"`
	StockNuevo    int       `gorm:"not null"`
	Motivo        string
	ReferenciaID  *uuid.UUID `gorm:"type:uuid"` // venta_id or despacho_id if applicable
	CreatedAt     time.Time
}

// TableName overrides GORM's default pluralization.
func (MovimientoStock) TableName() string { return "movimientos_stock" }
