package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"distripos/internal/dto"
	"distripos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Cell reads tolerate short staleness; a dispatch or sale refreshes within the TTL.
const stockCacheTTL = 10 * time.Second

type StockHandler struct {
	svc service.StockService
	rdb *redis.Client
}

func NewStockHandler(svc service.StockService, rdb *redis.Client) *StockHandler {
	return &StockHandler{svc: svc, rdb: rdb}
}

// ObtenerCelda godoc
// @Summary      Stock de un SKU en una ciudad
// @Description  Lee una celda (ciudad, sku) del ledger. Una celda sin movimientos se lee como cero.
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        ciudad path string true "Ciudad"
// @Param        sku    path string true "SKU"
// @Success      200 {object} dto.StockCeldaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/stock/{ciudad}/{sku} [get]
func (h *StockHandler) ObtenerCelda(c *gin.Context) {
	ciudad := c.Param("ciudad")
	sku := c.Param("sku")
	ctx := c.Request.Context()
	cacheKey := "stock:" + ciudad + ":" + sku

	if cached, err := h.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
		var resp dto.StockCeldaResponse
		if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
			c.JSON(http.StatusOK, resp)
			return
		}
	}

	celda, err := h.svc.ObtenerCelda(ctx, ciudad, sku)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := dto.StockCeldaResponse{Ciudad: celda.Ciudad, Sku: celda.Sku, Cantidad: celda.Cantidad}

	// Populate cache — best effort, ignore errors
	if b, jsonErr := json.Marshal(resp); jsonErr == nil {
		_ = h.rdb.Set(context.Background(), cacheKey, b, stockCacheTTL).Err()
	}

	c.JSON(http.StatusOK, resp)
}

// ListarCiudad godoc
// @Summary      Stock completo de una ciudad
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        ciudad path string true "Ciudad"
// @Success      200 {object} dto.StockCiudadResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/stock/{ciudad} [get]
func (h *StockHandler) ListarCiudad(c *gin.Context) {
	celdas, err := h.svc.ListarCiudad(c.Request.Context(), c.Param("ciudad"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	resp := dto.StockCiudadResponse{Ciudad: c.Param("ciudad"), Celdas: make([]dto.StockCeldaResponse, len(celdas))}
	for i, celda := range celdas {
		resp.Ciudad = celda.Ciudad
		resp.Celdas[i] = dto.StockCeldaResponse{Ciudad: celda.Ciudad, Sku: celda.Sku, Cantidad: celda.Cantidad}
	}
	c.JSON(http.StatusOK, resp)
}

// Ajustar godoc
// @Summary      Ajuste manual de stock
// @Description  Corrección supervisada de una celda; el resultado clampea en cero y queda registrado en el journal de movimientos.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ciudad path string                  true "Ciudad"
// @Param        sku    path string                  true "SKU"
// @Param        body   body dto.AjustarStockRequest true "Delta y motivo"
// @Success      200 {object} dto.StockCeldaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/stock/{ciudad}/{sku}/ajustar [post]
func (h *StockHandler) Ajustar(c *gin.Context) {
	var req dto.AjustarStockRequest
	if !bindAndValidate(c, &req) {
		return
	}

	nuevo, err := h.svc.Ajustar(c.Request.Context(), c.Param("ciudad"), c.Param("sku"), req.Delta, req.Motivo)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	// Drop the now-stale cache entry
	_ = h.rdb.Del(context.Background(), "stock:"+c.Param("ciudad")+":"+c.Param("sku")).Err()

	c.JSON(http.StatusOK, dto.StockCeldaResponse{
		Ciudad:   c.Param("ciudad"),
		Sku:      c.Param("sku"),
		Cantidad: nuevo,
	})
}

// ListarMovimientos godoc
// @Summary      Journal de movimientos de stock
// @Description  Filas inmutables del journal de una ciudad, las más recientes primero.
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        ciudad path  string true  "Ciudad"
// @Param        sku    query string false "Filtrar por SKU"
// @Param        limit  query int    false "Máximo de filas (default 100)"
// @Success      200 {array} model.MovimientoStock
// @Router       /v1/stock/{ciudad}/movimientos [get]
func (h *StockHandler) ListarMovimientos(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	movs, err := h.svc.ListarMovimientos(c.Request.Context(), c.Param("ciudad"), c.Query("sku"), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, movs)
}
