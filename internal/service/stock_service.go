package service

import (
	"context"
	"fmt"

	"distripos/internal/model"
	"distripos/internal/normalize"
	"distripos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StockService is the city stock ledger. Every mutation of a (ciudad, sku)
// cell goes through here, inside the caller's transaction, and leaves an
// immutable row in movimientos_stock.
type StockService interface {
	ObtenerCelda(ctx context.Context, ciudadRaw, sku string) (*model.StockCiudad, error)
	ListarCiudad(ctx context.Context, ciudadRaw string) ([]model.StockCiudad, error)

	// Ajustar applies a manual correction: the cell clamps at zero.
	// Returns the resulting quantity.
	Ajustar(ctx context.Context, ciudadRaw, sku string, delta int, motivo string) (int, error)

	// DescontarTx decreases the cell by cantidad. With clamp=false the call
	// fails with ErrStockInsuficiente rather than going negative; with
	// clamp=true the cell stops at zero and the short quantity is logged.
	DescontarTx(tx *gorm.DB, ciudad, sku string, cantidad int, clamp bool, tipo string, referencia *uuid.UUID, motivo string) error

	// RestaurarTx increases the cell by cantidad (sale cancellation or edit
	// reversal).
	RestaurarTx(tx *gorm.DB, ciudad, sku string, cantidad int, tipo string, referencia *uuid.UUID, motivo string) error

	// AplicarDespachoTx increments the city's cells for every line item
	// exactly once, keyed by the dispatch id. Re-applying the same dispatch
	// returns (false, nil) and changes nothing.
	AplicarDespachoTx(tx *gorm.DB, despacho *model.Despacho) (bool, error)

	// ListarMovimientos returns the newest journal rows of a city, optionally
	// filtered by SKU.
	ListarMovimientos(ctx context.Context, ciudadRaw, sku string, limit int) ([]model.MovimientoStock, error)
}

type stockService struct {
	repo repository.StockRepository
}

func NewStockService(repo repository.StockRepository) StockService {
	return &stockService{repo: repo}
}

func (s *stockService) ObtenerCelda(ctx context.Context, ciudadRaw, sku string) (*model.StockCiudad, error) {
	ciudad := normalize.Ciudad(ciudadRaw)
	if ciudad == "" {
		return nil, ErrCiudadDesconocida
	}
	celda, err := s.repo.FindCelda(ctx, ciudad, sku)
	if err == gorm.ErrRecordNotFound {
		// An untouched cell reads as zero, same as the empty ledger row.
		return &model.StockCiudad{Ciudad: ciudad, Sku: sku, Cantidad: 0}, nil
	}
	return celda, err
}

func (s *stockService) ListarCiudad(ctx context.Context, ciudadRaw string) ([]model.StockCiudad, error) {
	ciudad := normalize.Ciudad(ciudadRaw)
	if ciudad == "" {
		return nil, ErrCiudadDesconocida
	}
	return s.repo.ListPorCiudad(ctx, ciudad)
}

func (s *stockService) Ajustar(ctx context.Context, ciudadRaw, sku string, delta int, motivo string) (int, error) {
	ciudad := normalize.Ciudad(ciudadRaw)
	if ciudad == "" {
		return 0, ErrCiudadDesconocida
	}

	var resultado int
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		celda, err := s.repo.FindCeldaForUpdateTx(tx, ciudad, sku)
		if err != nil {
			return err
		}

		nuevo := celda.Cantidad + delta
		if nuevo < 0 {
			log.Warn().
				Str("ciudad", ciudad).
				Str("sku", sku).
				Int("cantidad", celda.Cantidad).
				Int("delta", delta).
				Msg("stock: ajuste clampeado a cero")
			nuevo = 0
		}

		if err := s.repo.SetCantidadTx(tx, ciudad, sku, nuevo); err != nil {
			return err
		}

		resultado = nuevo
		return s.repo.RegistrarMovimientoTx(tx, &model.MovimientoStock{
			Ciudad:        ciudad,
			Sku:           sku,
			Tipo:          "ajuste_manual",
			Cantidad:      nuevo - celda.Cantidad,
			StockAnterior: celda.Cantidad,
			StockNuevo:    nuevo,
			Motivo:        motivo,
		})
	})
	return resultado, err
}

func (s *stockService) DescontarTx(tx *gorm.DB, ciudad, sku string, cantidad int, clamp bool, tipo string, referencia *uuid.UUID, motivo string) error {
	celda, err := s.repo.FindCeldaForUpdateTx(tx, ciudad, sku)
	if err != nil {
		return err
	}

	nuevo := celda.Cantidad - cantidad
	if !clamp {
		// Guarded atomic decrement: the UPDATE itself enforces
		// cantidad >= pedido, so a racing writer can never drive the
		// cell negative.
		ok, err := s.repo.DescontarTx(tx, ciudad, sku, cantidad)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s/%s tiene %d y se pidieron %d",
				ErrStockInsuficiente, ciudad, sku, celda.Cantidad, cantidad)
		}
	} else {
		if nuevo < 0 {
			log.Warn().
				Str("ciudad", ciudad).
				Str("sku", sku).
				Int("cantidad", celda.Cantidad).
				Int("pedido", cantidad).
				Msg("stock: descuento clampeado a cero")
			nuevo = 0
		}
		if err := s.repo.SetCantidadTx(tx, ciudad, sku, nuevo); err != nil {
			return err
		}
	}

	return s.repo.RegistrarMovimientoTx(tx, &model.MovimientoStock{
		Ciudad:        ciudad,
		Sku:           sku,
		Tipo:          tipo,
		Cantidad:      nuevo - celda.Cantidad,
		StockAnterior: celda.Cantidad,
		StockNuevo:    nuevo,
		Motivo:        motivo,
		ReferenciaID:  referencia,
	})
}

func (s *stockService) RestaurarTx(tx *gorm.DB, ciudad, sku string, cantidad int, tipo string, referencia *uuid.UUID, motivo string) error {
	celda, err := s.repo.FindCeldaForUpdateTx(tx, ciudad, sku)
	if err != nil {
		return err
	}

	nuevo := celda.Cantidad + cantidad
	if err := s.repo.IncrementarTx(tx, ciudad, sku, cantidad); err != nil {
		return err
	}

	return s.repo.RegistrarMovimientoTx(tx, &model.MovimientoStock{
		Ciudad:        ciudad,
		Sku:           sku,
		Tipo:          tipo,
		Cantidad:      cantidad,
		StockAnterior: celda.Cantidad,
		StockNuevo:    nuevo,
		Motivo:        motivo,
		ReferenciaID:  referencia,
	})
}

func (s *stockService) ListarMovimientos(ctx context.Context, ciudadRaw, sku string, limit int) ([]model.MovimientoStock, error) {
	ciudad := normalize.Ciudad(ciudadRaw)
	if ciudad == "" {
		return nil, ErrCiudadDesconocida
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListMovimientos(ctx, ciudad, sku, limit)
}

func (s *stockService) AplicarDespachoTx(tx *gorm.DB, despacho *model.Despacho) (bool, error) {
	aplicado, err := s.repo.MarcarDespachoAplicadoTx(tx, despacho.ID)
	if err != nil {
		return false, err
	}
	if !aplicado {
		// Already in the idempotency set: a retried confirmation is a no-op.
		log.Info().
			Str("despacho_id", despacho.ID.String()).
			Str("ciudad", despacho.Ciudad).
			Msg("stock: despacho ya aplicado, se ignora")
		return false, nil
	}

	for _, item := range despacho.Items {
		celda, err := s.repo.FindCeldaForUpdateTx(tx, despacho.Ciudad, item.Sku)
		if err != nil {
			return false, err
		}
		nuevo := celda.Cantidad + item.Cantidad
		if err := s.repo.IncrementarTx(tx, despacho.Ciudad, item.Sku, item.Cantidad); err != nil {
			return false, err
		}
		ref := despacho.ID
		mov := &model.MovimientoStock{
			Ciudad:        despacho.Ciudad,
			Sku:           item.Sku,
			Tipo:          "despacho",
			Cantidad:      item.Cantidad,
			StockAnterior: celda.Cantidad,
			StockNuevo:    nuevo,
			Motivo:        fmt.Sprintf("Despacho %s", despacho.Fecha.Format("2006-01-02")),
			ReferenciaID:  &ref,
		}
		if err := s.repo.RegistrarMovimientoTx(tx, mov); err != nil {
			return false, err
		}
	}
	return true, nil
}
