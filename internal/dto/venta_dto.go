package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from the query string of GET /v1/ventas.
type VentaFilter struct {
	Fecha  string `form:"fecha"`  // YYYY-MM-DD; empty = today
	Ciudad string `form:"ciudad"` // raw; normalized before querying
	Estado string `form:"estado"` // pendiente | confirmado | entregada | cancelado | all
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// PendientesFilter selects the receivables list (not yet folded into a deposit).
type PendientesFilter struct {
	Ciudad string `form:"ciudad"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearVentaRequest struct {
	// CodigoUnico is the idempotency key; a retried request with the same
	// code returns the already registered sale.
	CodigoUnico   string  `json:"codigo_unico"   validate:"required,min=6,max=64"`
	Fecha         string  `json:"fecha"          validate:"required,datetime=2006-01-02"`
	Ciudad        string  `json:"ciudad"         validate:"required,min=2"`
	Sku           string  `json:"sku"            validate:"required"`
	Cantidad      int     `json:"cantidad"       validate:"required,min=1"`
	SkuExtra      *string `json:"sku_extra"`
	CantidadExtra *int    `json:"cantidad_extra" validate:"omitempty,min=1"`

	Precio decimal.Decimal `json:"precio" validate:"required"`
	Gasto  decimal.Decimal `json:"gasto"  validate:"min=0"`

	TelefonoCliente *string `json:"telefono_cliente"`
	Notas           *string `json:"notas"`
	MetodoEntrega   string  `json:"metodo_entrega" validate:"omitempty,oneof=domicilio agencia recojo"`
}

type CancelarVentaRequest struct {
	Motivo           string          `json:"motivo"            validate:"required,min=5"`
	GastoCancelacion decimal.Decimal `json:"gasto_cancelacion" validate:"min=0"`
}

// EditarVentaRequest patches a sale that is still pendiente or confirmado
// and in the receivables list. Quantity/SKU changes re-balance city stock.
type EditarVentaRequest struct {
	Sku             *string          `json:"sku"`
	Cantidad        *int             `json:"cantidad"       validate:"omitempty,min=1"`
	SkuExtra        *string          `json:"sku_extra"`
	CantidadExtra   *int             `json:"cantidad_extra" validate:"omitempty,min=1"`
	Precio          *decimal.Decimal `json:"precio"`
	Gasto           *decimal.Decimal `json:"gasto"`
	TelefonoCliente *string          `json:"telefono_cliente"`
	Notas           *string          `json:"notas"`
	MetodoEntrega   *string          `json:"metodo_entrega" validate:"omitempty,oneof=domicilio agencia recojo"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VentaResponse struct {
	ID               string          `json:"id"`
	CodigoUnico      string          `json:"codigo_unico"`
	Fecha            string          `json:"fecha"`
	Ciudad           string          `json:"ciudad"`
	Sku              string          `json:"sku"`
	Cantidad         int             `json:"cantidad"`
	SkuExtra         *string         `json:"sku_extra"`
	CantidadExtra    *int            `json:"cantidad_extra"`
	Precio           decimal.Decimal `json:"precio"`
	Gasto            decimal.Decimal `json:"gasto"`
	GastoCancelacion decimal.Decimal `json:"gasto_cancelacion"`
	Total            decimal.Decimal `json:"total"`
	EstadoEntrega    string          `json:"estado_entrega"`
	EstadoPago       string          `json:"estado_pago"`
	VendedorID       string          `json:"vendedor_id"`
	TelefonoCliente  *string         `json:"telefono_cliente"`
	MetodoEntrega    string          `json:"metodo_entrega"`
	EnPendientes     bool            `json:"en_pendientes"`
	DepositoID       *string         `json:"deposito_id"`
	CreatedAt        string          `json:"created_at"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}
