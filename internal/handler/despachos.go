package handler

import (
	"net/http"
	"strconv"

	"distripos/internal/apierror"
	"distripos/internal/dto"
	"distripos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DespachosHandler struct{ svc service.DespachoService }

func NewDespachosHandler(svc service.DespachoService) *DespachosHandler {
	return &DespachosHandler{svc: svc}
}

// Crear godoc
// @Summary      Registrar despacho
// @Description  Registra un envío de mercadería hacia una ciudad en estado pendiente. El stock no se mueve hasta la confirmación.
// @Tags         despachos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearDespachoRequest true "Ciudad, fecha e items"
// @Success      201 {object} dto.DespachoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/despachos [post]
func (h *DespachosHandler) Crear(c *gin.Context) {
	var req dto.CrearDespachoRequest
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

// Confirmar godoc
// @Summary      Confirmar despacho
// @Description  Aplica los items al stock de la ciudad exactamente una vez. Una confirmación repetida es un no-op seguro: las cantidades no se duplican.
// @Tags         despachos
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID del despacho"
// @Success      200 {object} dto.DespachoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/despachos/{id}/confirmar [post]
func (h *DespachosHandler) Confirmar(c *gin.Context) {
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

// ListarPorCiudad godoc
// @Summary      Listar despachos de una ciudad
// @Tags         despachos
// @Produce      json
// @Security     BearerAuth
// @Param        ciudad path  string true  "Ciudad"
// @Param        limit  query int    false "Máximo de registros (default 50)"
// @Success      200 {array} dto.DespachoResponse
// @Router       /v1/despachos/ciudad/{ciudad} [get]
func (h *DespachosHandler) ListarPorCiudad(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	resp, err := h.svc.ListPorCiudad(c.Request.Context(), c.Param("ciudad"), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
