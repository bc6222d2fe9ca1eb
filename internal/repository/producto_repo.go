package repository

import (
	"context"

	"distripos/internal/dto"
	"distripos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductoRepository defines the data access contract for the catalog.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type ProductoRepository interface {
	Create(ctx context.Context, p *model.Producto) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	FindBySku(ctx context.Context, sku string) (*model.Producto, error)
	List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error)
	ListSkus(ctx context.Context) ([]string, error)
	Update(ctx context.Context, p *model.Producto) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountVentasPorSku(ctx context.Context, sku string) (int64, error)

	// Used inside transactions — callers must pass the tx instance
	DescontarStockCentralTx(tx *gorm.DB, sku string, cantidad int) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *productoRepo) FindBySku(ctx context.Context, sku string) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Where("sku = ? AND activo = true", sku).First(&p).Error
	return &p, err
}

func (r *productoRepo) List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error) {
	var productos []model.Producto
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Producto{})

	// Activo filter: "false" = inactivos, "all" = todos, anything else = activos (default)
	switch filter.Activo {
	case "false":
		q = q.Where("activo = false")
	case "all":
		// no filter
	default:
		q = q.Where("activo = true")
	}

	if filter.Sku != "" {
		q = q.Where("sku = ?", filter.Sku)
	}
	if filter.Nombre != "" {
		q = q.Where("nombre ILIKE ?", "%"+filter.Nombre+"%")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("nombre ASC").Limit(filter.Limit).Offset(offset).Find(&productos).Error
	return productos, total, err
}

func (r *productoRepo) ListSkus(ctx context.Context) ([]string, error) {
	var skus []string
	err := r.db.WithContext(ctx).Model(&model.Producto{}).
		Where("activo = true").Pluck("sku", &skus).Error
	return skus, err
}

func (r *productoRepo) Update(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *productoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Producto{}, id).Error
}

// CountVentasPorSku counts sales referencing the SKU as primary or extra.
// A product may only be deleted while this count is zero.
func (r *productoRepo) CountVentasPorSku(ctx context.Context, sku string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("sku = ? OR sku_extra = ?", sku, sku).
		Count(&count).Error
	return count, err
}

func (r *productoRepo) DescontarStockCentralTx(tx *gorm.DB, sku string, cantidad int) error {
	// Clamps at zero: historical central-stock data predates the ledger.
	return tx.Model(&model.Producto{}).Where("sku = ?", sku).
		Update("stock_central", gorm.Expr("GREATEST(0, stock_central - ?)", cantidad)).Error
}

func (r *productoRepo) DB() *gorm.DB { return r.db }
