package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"distripos/internal/dto"
	"distripos/internal/model"
	"distripos/internal/normalize"
	"distripos/internal/repository"
	"distripos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type VentaService interface {
	// Crear registers a sale. Retrying with an already-known codigo_unico
	// returns the stored sale and creada=false instead of failing.
	Crear(ctx context.Context, vendedorID uuid.UUID, req dto.CrearVentaRequest) (*dto.VentaResponse, bool, error)
	Confirmar(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	Entregar(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error)
	Cancelar(ctx context.Context, id uuid.UUID, req dto.CancelarVentaRequest) (*dto.VentaResponse, error)
	Editar(ctx context.Context, id uuid.UUID, req dto.EditarVentaRequest) (*dto.VentaResponse, error)

	// LiquidarTx settles the sale into a deposit inside the caller's
	// transaction. Returns false when the sale already belongs to that same
	// deposit (idempotent re-add).
	LiquidarTx(tx *gorm.DB, venta *model.Venta, depositoID uuid.UUID) (bool, error)

	List(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error)
	ListPendientes(ctx context.Context, filter dto.PendientesFilter) (*dto.VentaListResponse, error)
}

type ventaService struct {
	repo         repository.VentaRepository
	productoRepo repository.ProductoRepository
	notifRepo    repository.NotificacionRepository
	stock        StockService
	dispatcher   *worker.Dispatcher
}

func NewVentaService(
	repo repository.VentaRepository,
	productoRepo repository.ProductoRepository,
	notifRepo repository.NotificacionRepository,
	stock StockService,
	dispatcher *worker.Dispatcher,
) VentaService {
	return &ventaService{
		repo:         repo,
		productoRepo: productoRepo,
		notifRepo:    notifRepo,
		stock:        stock,
		dispatcher:   dispatcher,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// Idempotent creation keyed by codigo_unico: the unique index is the write-time
// replacement for the after-the-fact duplicate scans the data used to need.

func (s *ventaService) Crear(ctx context.Context, vendedorID uuid.UUID, req dto.CrearVentaRequest) (*dto.VentaResponse, bool, error) {
	ciudad := normalize.Ciudad(req.Ciudad)
	if ciudad == "" {
		return nil, false, ErrCiudadDesconocida
	}

	if _, err := s.productoRepo.FindBySku(ctx, req.Sku); err != nil {
		return nil, false, fmt.Errorf("%w: %s", ErrSkuDesconocido, req.Sku)
	}
	cantidadExtra := req.CantidadExtra
	if req.SkuExtra != nil {
		if _, err := s.productoRepo.FindBySku(ctx, *req.SkuExtra); err != nil {
			return nil, false, fmt.Errorf("%w: %s", ErrSkuDesconocido, *req.SkuExtra)
		}
		if cantidadExtra == nil {
			uno := 1
			cantidadExtra = &uno
		}
	}

	// Fast path for retried requests. Only a clean not-found falls through
	// to the insert; a transient DB error must surface, not mask the replay.
	existing, err := s.repo.FindByCodigoUnico(ctx, req.CodigoUnico)
	switch {
	case err == nil:
		return ventaToResponse(existing), false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}

	fecha, err := time.Parse("2006-01-02", req.Fecha)
	if err != nil {
		return nil, false, fmt.Errorf("fecha inválida: %w", err)
	}

	metodo := req.MetodoEntrega
	if metodo == "" {
		metodo = "domicilio"
	}

	venta := model.Venta{
		CodigoUnico:     req.CodigoUnico,
		Fecha:           fecha,
		Ciudad:          ciudad,
		Sku:             req.Sku,
		Cantidad:        req.Cantidad,
		SkuExtra:        req.SkuExtra,
		CantidadExtra:   cantidadExtra,
		Precio:          req.Precio,
		Gasto:           req.Gasto,
		Total:           req.Precio.Sub(req.Gasto),
		EstadoEntrega:   model.VentaPendiente,
		EstadoPago:      model.PagoPendiente,
		VendedorID:      vendedorID,
		TelefonoCliente: req.TelefonoCliente,
		Notas:           req.Notas,
		MetodoEntrega:   metodo,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.CreateTx(tx, &venta)
	})
	if txErr != nil {
		// Lost the race against a concurrent retry — the stored row wins.
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			if existing, err := s.repo.FindByCodigoUnico(ctx, req.CodigoUnico); err == nil {
				return ventaToResponse(existing), false, nil
			}
		}
		return nil, false, txErr
	}

	return ventaToResponse(&venta), true, nil
}

// ── Confirmar ─────────────────────────────────────────────────────────────────
// pendiente → confirmado. Discounts city stock for the primary and (if any)
// extra SKU in the same transaction; the CAS on estado_entrega means two
// concurrent confirmations apply the discount once.

func (s *ventaService) Confirmar(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	var venta *model.Venta
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.repo.FindForUpdateTx(tx, id)
		if err != nil {
			return errors.New("venta no encontrada")
		}

		ok, err := s.repo.UpdateEstadoEntregaTx(tx, id, model.VentaPendiente, model.VentaConfirmada,
			map[string]interface{}{"confirmado_at": time.Now().UTC()})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: confirmar desde %s", ErrTransicionInvalida, v.EstadoEntrega)
		}

		ref := v.ID
		motivo := fmt.Sprintf("Venta %s", v.CodigoUnico)
		if err := s.stock.DescontarTx(tx, v.Ciudad, v.Sku, v.Cantidad, false, "venta", &ref, motivo); err != nil {
			return err
		}
		if v.SkuExtra != nil && v.CantidadExtra != nil {
			if err := s.stock.DescontarTx(tx, v.Ciudad, *v.SkuExtra, *v.CantidadExtra, false, "venta", &ref, motivo); err != nil {
				return err
			}
		}

		v.EstadoEntrega = model.VentaConfirmada
		venta = v
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	s.enqueueNotificacion(ctx, venta)
	return ventaToResponse(venta), nil
}

// enqueueNotificacion registers and dispatches the WhatsApp confirmation
// message. Best-effort: a queue failure never rolls back the sale.
func (s *ventaService) enqueueNotificacion(ctx context.Context, v *model.Venta) {
	if s.dispatcher == nil || s.notifRepo == nil || v.TelefonoCliente == nil || *v.TelefonoCliente == "" {
		return
	}

	notif := &model.Notificacion{
		VentaID:  v.ID,
		Telefono: *v.TelefonoCliente,
		Mensaje:  fmt.Sprintf("Su pedido %s fue confirmado y está en preparación.", v.CodigoUnico),
		Estado:   "pendiente",
	}
	if err := s.notifRepo.Create(ctx, notif); err != nil {
		log.Error().Err(err).Str("venta_id", v.ID.String()).Msg("venta: no se pudo registrar notificacion")
		return
	}
	if err := s.dispatcher.EnqueueNotificacion(ctx, worker.NotificacionJobPayload{
		NotificacionID: notif.ID.String(),
	}); err != nil {
		log.Error().Err(err).Str("venta_id", v.ID.String()).Msg("venta: no se pudo encolar notificacion")
	}
}

// ── Entregar ──────────────────────────────────────────────────────────────────

func (s *ventaService) Entregar(ctx context.Context, id uuid.UUID) (*dto.VentaResponse, error) {
	var venta *model.Venta
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.repo.FindForUpdateTx(tx, id)
		if err != nil {
			return errors.New("venta no encontrada")
		}

		ok, err := s.repo.UpdateEstadoEntregaTx(tx, id, model.VentaConfirmada, model.VentaEntregada,
			map[string]interface{}{"entregado_at": time.Now().UTC()})
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: entregar desde %s", ErrTransicionInvalida, v.EstadoEntrega)
		}

		v.EstadoEntrega = model.VentaEntregada
		venta = v
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return ventaToResponse(venta), nil
}

// ── Cancelar ──────────────────────────────────────────────────────────────────
// confirmado|entregada → cancelado. Restores the quantities discounted at
// confirmation and recomputes the total against the cancellation expense.

func (s *ventaService) Cancelar(ctx context.Context, id uuid.UUID, req dto.CancelarVentaRequest) (*dto.VentaResponse, error) {
	var venta *model.Venta
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.repo.FindForUpdateTx(tx, id)
		if err != nil {
			return errors.New("venta no encontrada")
		}
		if v.EstadoEntrega != model.VentaConfirmada && v.EstadoEntrega != model.VentaEntregada {
			return fmt.Errorf("%w: cancelar desde %s", ErrTransicionInvalida, v.EstadoEntrega)
		}

		v.EstadoEntrega = model.VentaCancelada
		v.GastoCancelacion = req.GastoCancelacion
		total := v.TotalCalculado()

		now := time.Now().UTC()
		fields := map[string]interface{}{
			"estado_entrega":     model.VentaCancelada,
			"estado_pago":        model.PagoCancelado,
			"cancelado_at":       now,
			"motivo_cancelacion": req.Motivo,
			"gasto_cancelacion":  req.GastoCancelacion,
			"total":              total,
		}
		if err := s.repo.UpdatesTx(tx, id, fields); err != nil {
			return err
		}

		ref := v.ID
		motivo := fmt.Sprintf("Cancelación venta %s — %s", v.CodigoUnico, req.Motivo)
		if err := s.stock.RestaurarTx(tx, v.Ciudad, v.Sku, v.Cantidad, "restore_cancelacion", &ref, motivo); err != nil {
			return err
		}
		if v.SkuExtra != nil && v.CantidadExtra != nil {
			if err := s.stock.RestaurarTx(tx, v.Ciudad, *v.SkuExtra, *v.CantidadExtra, "restore_cancelacion", &ref, motivo); err != nil {
				return err
			}
		}

		v.EstadoPago = model.PagoCancelado
		v.CanceladoAt = &now
		v.MotivoCancelacion = &req.Motivo
		v.Total = total
		venta = v
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return ventaToResponse(venta), nil
}

// ── Editar ────────────────────────────────────────────────────────────────────
// Only while pendiente or confirmado AND still in the receivables list. When
// a confirmed sale changes SKU or quantity, the old discount is restored and
// the new one applied inside the same transaction.

func (s *ventaService) Editar(ctx context.Context, id uuid.UUID, req dto.EditarVentaRequest) (*dto.VentaResponse, error) {
	if req.Sku != nil {
		if _, err := s.productoRepo.FindBySku(ctx, *req.Sku); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrSkuDesconocido, *req.Sku)
		}
	}
	if req.SkuExtra != nil && *req.SkuExtra != "" {
		if _, err := s.productoRepo.FindBySku(ctx, *req.SkuExtra); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrSkuDesconocido, *req.SkuExtra)
		}
	}

	var venta *model.Venta
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		v, err := s.repo.FindForUpdateTx(tx, id)
		if err != nil {
			return errors.New("venta no encontrada")
		}
		if (v.EstadoEntrega != model.VentaPendiente && v.EstadoEntrega != model.VentaConfirmada) || !v.EnPendientes() {
			return ErrVentaNoEditable
		}

		nuevoSku := v.Sku
		nuevaCantidad := v.Cantidad
		if req.Sku != nil {
			nuevoSku = *req.Sku
		}
		if req.Cantidad != nil {
			nuevaCantidad = *req.Cantidad
		}

		nuevoSkuExtra := v.SkuExtra
		nuevaCantidadExtra := v.CantidadExtra
		if req.SkuExtra != nil {
			if *req.SkuExtra == "" {
				nuevoSkuExtra, nuevaCantidadExtra = nil, nil
			} else {
				nuevoSkuExtra = req.SkuExtra
				if req.CantidadExtra != nil {
					nuevaCantidadExtra = req.CantidadExtra
				}
			}
		} else if req.CantidadExtra != nil && v.SkuExtra != nil {
			nuevaCantidadExtra = req.CantidadExtra
		}
		if nuevoSkuExtra != nil && nuevaCantidadExtra == nil {
			// Same default as Crear: an extra SKU without quantity means 1.
			uno := 1
			nuevaCantidadExtra = &uno
		}

		cantidadCambio := nuevoSku != v.Sku || nuevaCantidad != v.Cantidad
		extraCambio := extraDistinto(v.SkuExtra, v.CantidadExtra, nuevoSkuExtra, nuevaCantidadExtra)
		if (cantidadCambio || extraCambio) && v.EstadoEntrega == model.VentaConfirmada {
			// Inverse delta first, then the new discount, one logical unit.
			ref := v.ID
			motivo := fmt.Sprintf("Edición venta %s", v.CodigoUnico)
			if cantidadCambio {
				if err := s.stock.RestaurarTx(tx, v.Ciudad, v.Sku, v.Cantidad, "edicion", &ref, motivo); err != nil {
					return err
				}
				if err := s.stock.DescontarTx(tx, v.Ciudad, nuevoSku, nuevaCantidad, false, "edicion", &ref, motivo); err != nil {
					return err
				}
			}
			if extraCambio {
				if v.SkuExtra != nil && v.CantidadExtra != nil {
					if err := s.stock.RestaurarTx(tx, v.Ciudad, *v.SkuExtra, *v.CantidadExtra, "edicion", &ref, motivo); err != nil {
						return err
					}
				}
				if nuevoSkuExtra != nil {
					if err := s.stock.DescontarTx(tx, v.Ciudad, *nuevoSkuExtra, *nuevaCantidadExtra, false, "edicion", &ref, motivo); err != nil {
						return err
					}
				}
			}
		}

		fields := map[string]interface{}{
			"sku":      nuevoSku,
			"cantidad": nuevaCantidad,
		}
		v.Sku = nuevoSku
		v.Cantidad = nuevaCantidad

		if req.SkuExtra != nil || (req.CantidadExtra != nil && v.SkuExtra != nil) {
			if nuevoSkuExtra == nil {
				fields["sku_extra"] = nil
				fields["cantidad_extra"] = nil
			} else {
				fields["sku_extra"] = *nuevoSkuExtra
				fields["cantidad_extra"] = *nuevaCantidadExtra
			}
			v.SkuExtra = nuevoSkuExtra
			v.CantidadExtra = nuevaCantidadExtra
		}

		if req.Precio != nil {
			fields["precio"] = *req.Precio
			v.Precio = *req.Precio
		}
		if req.Gasto != nil {
			fields["gasto"] = *req.Gasto
			v.Gasto = *req.Gasto
		}
		if req.TelefonoCliente != nil {
			fields["telefono_cliente"] = *req.TelefonoCliente
			v.TelefonoCliente = req.TelefonoCliente
		}
		if req.Notas != nil {
			fields["notas"] = *req.Notas
			v.Notas = req.Notas
		}
		if req.MetodoEntrega != nil {
			fields["metodo_entrega"] = *req.MetodoEntrega
			v.MetodoEntrega = *req.MetodoEntrega
		}

		// The total invariant must hold after every transition, edits included.
		v.Total = v.TotalCalculado()
		fields["total"] = v.Total

		if err := s.repo.UpdatesTx(tx, id, fields); err != nil {
			return err
		}
		venta = v
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return ventaToResponse(venta), nil
}

// ── LiquidarTx ────────────────────────────────────────────────────────────────

func (s *ventaService) LiquidarTx(tx *gorm.DB, venta *model.Venta, depositoID uuid.UUID) (bool, error) {
	if venta.DepositoID != nil {
		if *venta.DepositoID == depositoID {
			return false, nil
		}
		return false, fmt.Errorf("%w: venta %s", ErrVentaYaDepositada, venta.CodigoUnico)
	}
	if venta.EstadoPago != model.PagoPendiente || venta.EstadoEntrega == model.VentaCancelada {
		return false, fmt.Errorf("%w: liquidar venta %s en pago=%s entrega=%s",
			ErrTransicionInvalida, venta.CodigoUnico, venta.EstadoPago, venta.EstadoEntrega)
	}

	now := time.Now().UTC()
	fields := map[string]interface{}{
		"estado_pago":                model.PagoCobrado,
		"cobrado_at":                 now,
		"deposito_id":                depositoID,
		"eliminado_de_pendientes_at": now,
	}
	if err := s.repo.UpdatesTx(tx, venta.ID, fields); err != nil {
		return false, err
	}

	venta.EstadoPago = model.PagoCobrado
	venta.CobradoAt = &now
	venta.DepositoID = &depositoID
	venta.EliminadoDePendientesAt = &now
	return true, nil
}

// ── Listados ──────────────────────────────────────────────────────────────────

func (s *ventaService) List(ctx context.Context, filter dto.VentaFilter) (*dto.VentaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.Ciudad != "" {
		filter.Ciudad = normalize.Ciudad(filter.Ciudad)
	}
	ventas, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ventasToListResponse(ventas, total, filter.Page, filter.Limit), nil
}

func (s *ventaService) ListPendientes(ctx context.Context, filter dto.PendientesFilter) (*dto.VentaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.Ciudad != "" {
		filter.Ciudad = normalize.Ciudad(filter.Ciudad)
	}
	ventas, total, err := s.repo.ListPendientes(ctx, filter)
	if err != nil {
		return nil, err
	}
	return ventasToListResponse(ventas, total, filter.Page, filter.Limit), nil
}

// extraDistinto reports whether the extra SKU pair changed. A nil quantity
// counts as 1, matching the default applied on creation.
func extraDistinto(skuA *string, cantA *int, skuB *string, cantB *int) bool {
	if (skuA == nil) != (skuB == nil) {
		return true
	}
	if skuA == nil {
		return false
	}
	if *skuA != *skuB {
		return true
	}
	a, b := 1, 1
	if cantA != nil {
		a = *cantA
	}
	if cantB != nil {
		b = *cantB
	}
	return a != b
}

func ventasToListResponse(ventas []model.Venta, total int64, page, limit int) *dto.VentaListResponse {
	items := make([]dto.VentaResponse, 0, len(ventas))
	for i := range ventas {
		items = append(items, *ventaToResponse(&ventas[i]))
	}
	return &dto.VentaListResponse{Data: items, Total: total, Page: page, Limit: limit}
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	var depositoID *string
	if v.DepositoID != nil {
		s := v.DepositoID.String()
		depositoID = &s
	}
	return &dto.VentaResponse{
		ID:               v.ID.String(),
		CodigoUnico:      v.CodigoUnico,
		Fecha:            v.Fecha.Format("2006-01-02"),
		Ciudad:           v.Ciudad,
		Sku:              v.Sku,
		Cantidad:         v.Cantidad,
		SkuExtra:         v.SkuExtra,
		CantidadExtra:    v.CantidadExtra,
		Precio:           v.Precio,
		Gasto:            v.Gasto,
		GastoCancelacion: v.GastoCancelacion,
		Total:            v.Total,
		EstadoEntrega:    v.EstadoEntrega,
		EstadoPago:       v.EstadoPago,
		VendedorID:       v.VendedorID.String(),
		TelefonoCliente:  v.TelefonoCliente,
		MetodoEntrega:    v.MetodoEntrega,
		EnPendientes:     v.EnPendientes(),
		DepositoID:       depositoID,
		CreatedAt:        v.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
