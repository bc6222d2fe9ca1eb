package handler

import (
	"net/http"

	"distripos/internal/apierror"
	"distripos/internal/dto"
	"distripos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DepositosHandler struct{ svc service.DepositoService }

func NewDepositosHandler(svc service.DepositoService) *DepositosHandler {
	return &DepositosHandler{svc: svc}
}

// Crear godoc
// @Summary      Crear depósito
// @Description  Abre un depósito vacío para una ciudad y fecha. El codigo_lote es la clave de unicidad; varios depósitos pueden compartir ciudad y fecha.
// @Tags         depositos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearDepositoRequest true "Ciudad, fecha y lote"
// @Success      201 {object} dto.DepositoResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/depositos [post]
func (h *DepositosHandler) Crear(c *gin.Context) {
	var req dto.CrearDepositoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// AgregarVenta godoc
// @Summary      Liquidar una venta en el depósito
// @Description  Marca la venta como cobrada, la saca de la lista de pendientes y suma su total al depósito. Idempotente: re-agregar la misma venta no cambia nada.
// @Tags         depositos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                  true "UUID del depósito"
// @Param        body body dto.AgregarVentaRequest true "Código único de la venta"
// @Success      200 {object} dto.DepositoResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/depositos/{id}/ventas [post]
func (h *DepositosHandler) AgregarVenta(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.AgregarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarVenta(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Confirmar godoc
// @Summary      Confirmar depósito
// @Description  Congela el depósito (no admite más ventas) y encola el reporte PDF para el back-office.
// @Tags         depositos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID del depósito"
// @Success      200 {object} dto.DepositoResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/depositos/{id}/confirmar [post]
func (h *DepositosHandler) Confirmar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.svc.Confirmar(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary      Listar depósitos
// @Tags         depositos
// @Produce      json
// @Security     BearerAuth
// @Param        ciudad query string false "Ciudad"
// @Param        fecha  query string false "Fecha YYYY-MM-DD"
// @Param        estado query string false "pendiente | confirmado | all"
// @Param        page   query int    false "Página (default 1)"
// @Param        limit  query int    false "Registros por página (default 50)"
// @Success      200    {object} dto.DepositoListResponse
// @Router       /v1/depositos [get]
func (h *DepositosHandler) Listar(c *gin.Context) {
	var filter dto.DepositoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Error al listar depositos"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
