package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearDepositoRequest struct {
	Ciudad string `json:"ciudad" validate:"required,min=2"`
	Fecha  string `json:"fecha"  validate:"required,datetime=2006-01-02"`
	// CodigoLote is the client-generated batch id; several deposits may share
	// (ciudad, fecha) but never a codigo_lote. Empty = server-generated.
	CodigoLote string `json:"codigo_lote" validate:"omitempty,min=6,max=64"`
}

type AgregarVentaRequest struct {
	// CodigoUnico identifies the sale to settle into the deposit.
	CodigoUnico string `json:"codigo_unico" validate:"required"`
}

type DepositoFilter struct {
	Ciudad string `form:"ciudad"`
	Fecha  string `form:"fecha"`
	Estado string `form:"estado"` // pendiente | confirmado | all
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DepositoResponse struct {
	ID           string          `json:"id"`
	CodigoLote   string          `json:"codigo_lote"`
	Ciudad       string          `json:"ciudad"`
	Fecha        string          `json:"fecha"`
	Total        decimal.Decimal `json:"total"`
	Estado       string          `json:"estado"`
	NumVentas    int             `json:"num_ventas"`
	ConfirmadoAt *string         `json:"confirmado_at"`
	CreatedAt    string          `json:"created_at"`
}

type DepositoListResponse struct {
	Data  []DepositoResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
