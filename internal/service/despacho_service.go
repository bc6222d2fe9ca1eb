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

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DespachoService interface {
	// Crear registers a pending dispatch. No stock moves until confirmation.
	Crear(ctx context.Context, req dto.CrearDespachoRequest) (*dto.DespachoResponse, error)

	// Confirmar applies the dispatch's line items to city stock exactly once
	// and moves the quantities out of central stock. A retried confirmation
	// is a safe no-op.
	Confirmar(ctx context.Context, id uuid.UUID) (*dto.DespachoResponse, error)

	ListPorCiudad(ctx context.Context, ciudadRaw string, limit int) ([]dto.DespachoResponse, error)
}

type despachoService struct {
	repo         repository.DespachoRepository
	productoRepo repository.ProductoRepository
	stock        StockService
}

func NewDespachoService(
	repo repository.DespachoRepository,
	productoRepo repository.ProductoRepository,
	stock StockService,
) DespachoService {
	return &despachoService{repo: repo, productoRepo: productoRepo, stock: stock}
}

func (s *despachoService) Crear(ctx context.Context, req dto.CrearDespachoRequest) (*dto.DespachoResponse, error) {
	ciudad := normalize.Ciudad(req.Ciudad)
	if ciudad == "" {
		return nil, ErrCiudadDesconocida
	}

	fecha, err := time.Parse("2006-01-02", req.Fecha)
	if err != nil {
		return nil, fmt.Errorf("fecha inválida: %w", err)
	}

	skus, err := s.productoRepo.ListSkus(ctx)
	if err != nil {
		return nil, err
	}
	validos := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		validos[sku] = struct{}{}
	}

	despacho := model.Despacho{
		Ciudad: ciudad,
		Fecha:  fecha,
		Estado: "pendiente",
	}
	for _, item := range req.Items {
		sku, ok := normalize.Sku(item.Sku, validos)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSkuDesconocido, item.Sku)
		}
		despacho.Items = append(despacho.Items, model.DespachoItem{
			Sku:      sku,
			Cantidad: item.Cantidad,
		})
	}

	if err := s.repo.Create(ctx, &despacho); err != nil {
		return nil, err
	}
	return despachoToResponse(&despacho), nil
}

func (s *despachoService) Confirmar(ctx context.Context, id uuid.UUID) (*dto.DespachoResponse, error) {
	despacho, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.New("despacho no encontrado")
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		aplicado, err := s.stock.AplicarDespachoTx(tx, despacho)
		if err != nil {
			return err
		}
		if !aplicado {
			// Retried confirmation — the first application already moved the
			// stock; nothing else to do.
			return nil
		}

		for _, item := range despacho.Items {
			if err := s.productoRepo.DescontarStockCentralTx(tx, item.Sku, item.Cantidad); err != nil {
				return err
			}
		}

		return s.repo.UpdateEstadoTx(tx, despacho.ID, "confirmado")
	})
	if txErr != nil {
		return nil, txErr
	}

	despacho.Estado = "confirmado"
	return despachoToResponse(despacho), nil
}

func (s *despachoService) ListPorCiudad(ctx context.Context, ciudadRaw string, limit int) ([]dto.DespachoResponse, error) {
	ciudad := normalize.Ciudad(ciudadRaw)
	if ciudad == "" {
		return nil, ErrCiudadDesconocida
	}
	if limit < 1 {
		limit = 50
	}
	despachos, err := s.repo.ListPorCiudad(ctx, ciudad, limit)
	if err != nil {
		return nil, err
	}
	items := make([]dto.DespachoResponse, 0, len(despachos))
	for i := range despachos {
		items = append(items, *despachoToResponse(&despachos[i]))
	}
	return items, nil
}

func despachoToResponse(d *model.Despacho) *dto.DespachoResponse {
	items := make([]dto.ItemDespachoResponse, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, dto.ItemDespachoResponse{Sku: item.Sku, Cantidad: item.Cantidad})
	}
	return &dto.DespachoResponse{
		ID:        d.ID.String(),
		Ciudad:    d.Ciudad,
		Fecha:     d.Fecha.Format("2006-01-02"),
		Estado:    d.Estado,
		Items:     items,
		CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
