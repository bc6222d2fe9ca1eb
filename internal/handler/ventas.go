package handler

import (
	"net/http"

	"distripos/internal/apierror"
	"distripos/internal/dto"
	"distripos/internal/middleware"
	"distripos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type VentasHandler struct{ svc service.VentaService }

func NewVentasHandler(svc service.VentaService) *VentasHandler { return &VentasHandler{svc: svc} }

// Crear godoc
// @Summary      Registrar una nueva venta
// @Description  Registra una venta en estado pendiente. Idempotente por codigo_unico: un reintento con el mismo código devuelve la venta ya registrada (200 en vez de 201).
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearVentaRequest true "Detalle de la venta"
// @Success      201  {object} dto.VentaResponse
// @Success      200  {object} dto.VentaResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/ventas [post]
func (h *VentasHandler) Crear(c *gin.Context) {
	var req dto.CrearVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	vendedorID, _ := uuid.Parse(claims.UserID)

	resp, creada, err := h.svc.Crear(c.Request.Context(), vendedorID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !creada {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Confirmar godoc
// @Summary      Confirmar venta
// @Description  Transición pendiente → confirmado. Descuenta stock de la ciudad y encola la notificación WhatsApp.
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la venta"
// @Success      200 {object} dto.VentaResponse
// @Failure      409 {object} apierror.APIError
// @Failure      422 {object} apierror.APIError
// @Router       /v1/ventas/{id}/confirmar [post]
func (h *VentasHandler) Confirmar(c *gin.Context) {
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

// Entregar godoc
// @Summary      Marcar venta como entregada
// @Description  Transición confirmado → entregada. No mueve stock ni dinero.
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la venta"
// @Success      200 {object} dto.VentaResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/ventas/{id}/entregar [post]
func (h *VentasHandler) Entregar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.svc.Entregar(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancelar godoc
// @Summary      Cancelar venta
// @Description  Cancela una venta confirmada o entregada: restaura el stock de la ciudad y recalcula el total con el gasto de cancelación.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "UUID de la venta"
// @Param        body body dto.CancelarVentaRequest true "Motivo y gasto de cancelación"
// @Success      200 {object} dto.VentaResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/ventas/{id}/cancelar [post]
func (h *VentasHandler) Cancelar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.CancelarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cancelar(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Editar godoc
// @Summary      Editar venta
// @Description  Modifica una venta que sigue en la lista de pendientes. Cambios de SKU o cantidad re-balancean el stock de la ciudad.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "UUID de la venta"
// @Param        body body dto.EditarVentaRequest true "Campos a modificar"
// @Success      200 {object} dto.VentaResponse
// @Failure      409 {object} apierror.APIError
// @Failure      422 {object} apierror.APIError
// @Router       /v1/ventas/{id} [put]
func (h *VentasHandler) Editar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.EditarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Editar(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary      Listar ventas
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        fecha  query string false "Fecha YYYY-MM-DD (default: hoy)"
// @Param        ciudad query string false "Ciudad"
// @Param        estado query string false "pendiente | confirmado | entregada | cancelado | all"
// @Param        page   query int    false "Página (default 1)"
// @Param        limit  query int    false "Registros por página (default 50)"
// @Success      200    {object} dto.VentaListResponse
// @Router       /v1/ventas [get]
func (h *VentasHandler) Listar(c *gin.Context) {
	var filter dto.VentaFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Error al listar ventas"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarPendientes godoc
// @Summary      Listar ventas pendientes de cobro
// @Description  Ventas confirmadas o entregadas que aún no fueron liquidadas en un depósito.
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        ciudad query string false "Ciudad"
// @Param        page   query int    false "Página (default 1)"
// @Param        limit  query int    false "Registros por página (default 50)"
// @Success      200    {object} dto.VentaListResponse
// @Router       /v1/ventas/pendientes [get]
func (h *VentasHandler) ListarPendientes(c *gin.Context) {
	var filter dto.PendientesFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.ListPendientes(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Error al listar pendientes"))
		return
	}
	c.JSON(http.StatusOK, resp)
}
