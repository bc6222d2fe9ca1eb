package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	Sku           string          `json:"sku"            validate:"required,min=2,max=40"`
	Nombre        string          `json:"nombre"         validate:"required,min=2,max=120"`
	Descripcion   *string         `json:"descripcion"`
	PrecioVenta   decimal.Decimal `json:"precio_venta"   validate:"required"`
	CostoUnitario decimal.Decimal `json:"costo_unitario" validate:"min=0"`
	GastoEntrega  decimal.Decimal `json:"gasto_entrega"  validate:"min=0"`
	StockCentral  int             `json:"stock_central"  validate:"min=0"`
	Sintetico     bool            `json:"sintetico"`
}

type ActualizarProductoRequest struct {
	Nombre        *string          `json:"nombre"         validate:"omitempty,min=2,max=120"`
	Descripcion   *string          `json:"descripcion"`
	PrecioVenta   *decimal.Decimal `json:"precio_venta"`
	CostoUnitario *decimal.Decimal `json:"costo_unitario"`
	GastoEntrega  *decimal.Decimal `json:"gasto_entrega"`
	StockCentral  *int             `json:"stock_central"  validate:"omitempty,min=0"`
	Sintetico     *bool            `json:"sintetico"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductoFilter struct {
	Sku    string `form:"sku"`
	Nombre string `form:"nombre"`
	Activo string `form:"activo"` // "false" | "all" | default activos
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID            string          `json:"id"`
	Sku           string          `json:"sku"`
	Nombre        string          `json:"nombre"`
	Descripcion   *string         `json:"descripcion"`
	PrecioVenta   decimal.Decimal `json:"precio_venta"`
	CostoUnitario decimal.Decimal `json:"costo_unitario"`
	GastoEntrega  decimal.Decimal `json:"gasto_entrega"`
	StockCentral  int             `json:"stock_central"`
	Sintetico     bool            `json:"sintetico"`
	Activo        bool            `json:"activo"`
}

type ProductoListResponse struct {
	Data  []ProductoResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}
