package handler

import (
	"errors"
	"net/http"
	"reflect"

	"distripos/internal/apierror"
	"distripos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// respondServiceError maps domain errors onto HTTP statuses:
// unknown SKU/city/record to 404, state conflicts (already settled,
// confirmed, invalid transition) to 409, insufficient stock to 422,
// anything else to 400.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSkuDesconocido),
		errors.Is(err, service.ErrCiudadDesconocida),
		errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrVentaYaDepositada),
		errors.Is(err, service.ErrDepositoDuplicado),
		errors.Is(err, service.ErrDepositoConfirmado),
		errors.Is(err, service.ErrTransicionInvalida),
		errors.Is(err, service.ErrVentaNoEditable),
		errors.Is(err, service.ErrCodigoDuplicado),
		errors.Is(err, service.ErrProductoReferenciado):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case errors.Is(err, service.ErrStockInsuficiente):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	default:
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
	}
}
