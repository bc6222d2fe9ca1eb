package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// AjustarStockRequest is a manual correction to a (ciudad, sku) cell.
// The resulting quantity clamps at zero.
type AjustarStockRequest struct {
	Delta  int    `json:"delta"  validate:"required"`
	Motivo string `json:"motivo" validate:"required,min=5"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type StockCeldaResponse struct {
	Ciudad   string `json:"ciudad"`
	Sku      string `json:"sku"`
	Cantidad int    `json:"cantidad"`
}

type StockCiudadResponse struct {
	Ciudad string               `json:"ciudad"`
	Celdas []StockCeldaResponse `json:"celdas"`
}
