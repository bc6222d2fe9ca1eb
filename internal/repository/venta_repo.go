package repository

import (
	"context"

	"distripos/internal/dto"
	"distripos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VentaRepository interface {
	CreateTx(tx *gorm.DB, v *model.Venta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	FindByCodigoUnico(ctx context.Context, codigo string) (*model.Venta, error)
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Venta, error)

	// UpdateEstadoEntregaTx is the CAS guard for state transitions: the row
	// is only updated while its estado_entrega still matches desde.
	UpdateEstadoEntregaTx(tx *gorm.DB, id uuid.UUID, desde, hacia string, extra map[string]interface{}) (bool, error)
	UpdatesTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error

	List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error)
	ListPendientes(ctx context.Context, filter dto.PendientesFilter) ([]model.Venta, int64, error)

	DB() *gorm.DB // exposes the DB for transaction creation in the service layer
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) CreateTx(tx *gorm.DB, v *model.Venta) error {
	return tx.Create(v).Error
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).First(&v, id).Error
	return &v, err
}

func (r *ventaRepo) FindByCodigoUnico(ctx context.Context, codigo string) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).Where("codigo_unico = ?", codigo).First(&v).Error
	return &v, err
}

func (r *ventaRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, id).Error
	return &v, err
}

func (r *ventaRepo) UpdateEstadoEntregaTx(tx *gorm.DB, id uuid.UUID, desde, hacia string, extra map[string]interface{}) (bool, error) {
	fields := map[string]interface{}{"estado_entrega": hacia}
	for k, val := range extra {
		fields[k] = val
	}
	res := tx.Model(&model.Venta{}).
		Where("id = ? AND estado_entrega = ?", id, desde).
		Updates(fields)
	return res.RowsAffected > 0, res.Error
}

func (r *ventaRepo) UpdatesTx(tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	return tx.Model(&model.Venta{}).Where("id = ?", id).Updates(fields).Error
}

func (r *ventaRepo) List(ctx context.Context, filter dto.VentaFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Venta{})

	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado_entrega = ?", filter.Estado)
	}
	if filter.Ciudad != "" {
		q = q.Where("ciudad = ?", filter.Ciudad)
	}
	if filter.Fecha != "" {
		q = q.Where("fecha = ?", filter.Fecha)
	} else {
		// Default: today
		q = q.Where("fecha = CURRENT_DATE")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&ventas).Error

	return ventas, total, err
}

func (r *ventaRepo) ListPendientes(ctx context.Context, filter dto.PendientesFilter) ([]model.Venta, int64, error) {
	var ventas []model.Venta
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("eliminado_de_pendientes_at IS NULL").
		Where("estado_entrega IN ?", []string{model.VentaConfirmada, model.VentaEntregada})

	if filter.Ciudad != "" {
		q = q.Where("ciudad = ?", filter.Ciudad)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("fecha ASC, created_at ASC").
		Offset(offset).Limit(filter.Limit).
		Find(&ventas).Error

	return ventas, total, err
}
