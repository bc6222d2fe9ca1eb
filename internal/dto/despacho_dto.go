package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemDespachoRequest struct {
	Sku      string `json:"sku"      validate:"required"`
	Cantidad int    `json:"cantidad" validate:"required,min=1"`
}

type CrearDespachoRequest struct {
	Ciudad string                `json:"ciudad" validate:"required,min=2"`
	Fecha  string                `json:"fecha"  validate:"required,datetime=2006-01-02"`
	Items  []ItemDespachoRequest `json:"items"  validate:"required,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemDespachoResponse struct {
	Sku      string `json:"sku"`
	Cantidad int    `json:"cantidad"`
}

type DespachoResponse struct {
	ID        string                 `json:"id"`
	Ciudad    string                 `json:"ciudad"`
	Fecha     string                 `json:"fecha"`
	Estado    string                 `json:"estado"`
	Items     []ItemDespachoResponse `json:"items"`
	CreatedAt string                 `json:"created_at"`
}
