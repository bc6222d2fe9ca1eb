package service

import "errors"

// Domain errors. All are recoverable at the caller level: the failed
// operation leaves no partial state because every transition runs inside a
// single transaction. Handlers map these onto HTTP statuses with errors.Is.
var (
	ErrStockInsuficiente    = errors.New("stock insuficiente")
	ErrCodigoDuplicado      = errors.New("codigo unico ya registrado")
	ErrVentaYaDepositada    = errors.New("la venta ya pertenece a otro deposito")
	ErrDepositoDuplicado    = errors.New("ya existe un deposito con ese codigo de lote")
	ErrDepositoConfirmado   = errors.New("el deposito ya esta confirmado")
	ErrTransicionInvalida   = errors.New("transicion de estado invalida")
	ErrVentaNoEditable      = errors.New("la venta ya no es editable")
	ErrSkuDesconocido       = errors.New("sku desconocido")
	ErrCiudadDesconocida    = errors.New("ciudad desconocida")
	ErrProductoReferenciado = errors.New("el producto tiene ventas registradas")
)
