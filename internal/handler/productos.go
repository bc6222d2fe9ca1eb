package handler

import (
	"net/http"

	"distripos/internal/apierror"
	"distripos/internal/dto"
	"distripos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProductosHandler struct{ svc service.ProductoService }

func NewProductosHandler(svc service.ProductoService) *ProductosHandler {
	return &ProductosHandler{svc: svc}
}

// Crear godoc
// @Summary      Crear producto
// @Tags         productos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearProductoRequest true "Datos del producto"
// @Success      201 {object} dto.ProductoResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/productos [post]
func (h *ProductosHandler) Crear(c *gin.Context) {
	var req dto.CrearProductoRequest
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

// ObtenerPorSku godoc
// @Summary      Obtener producto por SKU
// @Tags         productos
// @Produce      json
// @Security     BearerAuth
// @Param        sku path string true "SKU"
// @Success      200 {object} dto.ProductoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/productos/sku/{sku} [get]
func (h *ProductosHandler) ObtenerPorSku(c *gin.Context) {
	resp, err := h.svc.ObtenerPorSku(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary      Listar productos
// @Tags         productos
// @Produce      json
// @Security     BearerAuth
// @Param        sku    query string false "Filtro por SKU (prefijo)"
// @Param        nombre query string false "Filtro por nombre"
// @Param        activo query string false "false | all | default activos"
// @Param        page   query int    false "Página (default 1)"
// @Param        limit  query int    false "Registros por página (default 20)"
// @Success      200 {object} dto.ProductoListResponse
// @Router       /v1/productos [get]
func (h *ProductosHandler) Listar(c *gin.Context) {
	var filter dto.ProductoFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, apierror.New("Error al listar productos"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary      Actualizar producto
// @Tags         productos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                        true "UUID del producto"
// @Param        body body dto.ActualizarProductoRequest true "Campos a modificar"
// @Success      200 {object} dto.ProductoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/productos/{id} [put]
func (h *ProductosHandler) Actualizar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.ActualizarProductoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Eliminar godoc
// @Summary      Eliminar producto
// @Description  Baja lógica. Un producto con ventas registradas no puede eliminarse.
// @Tags         productos
// @Security     BearerAuth
// @Param        id path string true "UUID del producto"
// @Success      204
// @Failure      409 {object} apierror.APIError
// @Router       /v1/productos/{id} [delete]
func (h *ProductosHandler) Eliminar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	if err := h.svc.Eliminar(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
