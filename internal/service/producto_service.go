package service

import (
	"context"
	"errors"
	"fmt"

	"distripos/internal/dto"
	"distripos/internal/model"
	"distripos/internal/repository"

	"github.com/google/uuid"
)

type ProductoService interface {
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorSku(ctx context.Context, sku string) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	Eliminar(ctx context.Context, id uuid.UUID) error
}

type productoService struct {
	repo repository.ProductoRepository
}

func NewProductoService(repo repository.ProductoRepository) ProductoService {
	return &productoService{repo: repo}
}

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	if _, err := s.repo.FindBySku(ctx, req.Sku); err == nil {
		return nil, fmt.Errorf("ya existe un producto con sku %s", req.Sku)
	}

	p := model.Producto{
		Sku:           req.Sku,
		Nombre:        req.Nombre,
		Descripcion:   req.Descripcion,
		PrecioVenta:   req.PrecioVenta,
		CostoUnitario: req.CostoUnitario,
		GastoEntrega:  req.GastoEntrega,
		StockCentral:  req.StockCentral,
		Sintetico:     req.Sintetico,
		Activo:        true,
	}
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, err
	}
	return productoToResponse(&p), nil
}

func (s *productoService) ObtenerPorSku(ctx context.Context, sku string) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindBySku(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSkuDesconocido, sku)
	}
	return productoToResponse(p), nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	productos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		items = append(items, *productoToResponse(&productos[i]))
	}
	return &dto.ProductoListResponse{
		Data:  items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *productoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errors.New("producto no encontrado")
	}

	if req.Nombre != nil {
		p.Nombre = *req.Nombre
	}
	if req.Descripcion != nil {
		p.Descripcion = req.Descripcion
	}
	if req.PrecioVenta != nil {
		p.PrecioVenta = *req.PrecioVenta
	}
	if req.CostoUnitario != nil {
		p.CostoUnitario = *req.CostoUnitario
	}
	if req.GastoEntrega != nil {
		p.GastoEntrega = *req.GastoEntrega
	}
	if req.StockCentral != nil {
		p.StockCentral = *req.StockCentral
	}
	if req.Sintetico != nil {
		p.Sintetico = *req.Sintetico
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return productoToResponse(p), nil
}

// Eliminar removes the product only while no sale references its SKU.
func (s *productoService) Eliminar(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return errors.New("producto no encontrado")
	}

	count, err := s.repo.CountVentasPorSku(ctx, p.Sku)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s (%d ventas)", ErrProductoReferenciado, p.Sku, count)
	}

	return s.repo.Delete(ctx, id)
}

func productoToResponse(p *model.Producto) *dto.ProductoResponse {
	return &dto.ProductoResponse{
		ID:            p.ID.String(),
		Sku:           p.Sku,
		Nombre:        p.Nombre,
		Descripcion:   p.Descripcion,
		PrecioVenta:   p.PrecioVenta,
		CostoUnitario: p.CostoUnitario,
		GastoEntrega:  p.GastoEntrega,
		StockCentral:  p.StockCentral,
		Sintetico:     p.Sintetico,
		Activo:        p.Activo,
	}
}
