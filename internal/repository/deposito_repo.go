package repository

import (
	"context"

	"distripos/internal/dto"
	"distripos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DepositoRepository interface {
	Create(ctx context.Context, d *model.Deposito) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Deposito, error)
	FindByCodigoLote(ctx context.Context, codigo string) (*model.Deposito, error)
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Deposito, error)
	SumarTotalTx(tx *gorm.DB, id uuid.UUID, monto decimal.Decimal) error
	ConfirmarTx(tx *gorm.DB, id uuid.UUID) (bool, error)
	List(ctx context.Context, filter dto.DepositoFilter) ([]model.Deposito, int64, error)
	DB() *gorm.DB
}

type depositoRepo struct{ db *gorm.DB }

func NewDepositoRepository(db *gorm.DB) DepositoRepository { return &depositoRepo{db: db} }

func (r *depositoRepo) DB() *gorm.DB { return r.db }

func (r *depositoRepo) Create(ctx context.Context, d *model.Deposito) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *depositoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Deposito, error) {
	var d model.Deposito
	err := r.db.WithContext(ctx).Preload("Ventas").First(&d, id).Error
	return &d, err
}

func (r *depositoRepo) FindByCodigoLote(ctx context.Context, codigo string) (*model.Deposito, error) {
	var d model.Deposito
	err := r.db.WithContext(ctx).Where("codigo_lote = ?", codigo).First(&d).Error
	return &d, err
}

func (r *depositoRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Deposito, error) {
	var d model.Deposito
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, id).Error
	return &d, err
}

func (r *depositoRepo) SumarTotalTx(tx *gorm.DB, id uuid.UUID, monto decimal.Decimal) error {
	return tx.Model(&model.Deposito{}).Where("id = ?", id).
		Update("total", gorm.Expr("total + ?", monto)).Error
}

// ConfirmarTx freezes the deposit; the CAS on estado makes a double
// confirmation visible to the caller.
func (r *depositoRepo) ConfirmarTx(tx *gorm.DB, id uuid.UUID) (bool, error) {
	res := tx.Model(&model.Deposito{}).
		Where("id = ? AND estado = ?", id, "pendiente").
		Updates(map[string]interface{}{
			"estado":        "confirmado",
			"confirmado_at": tx.NowFunc(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *depositoRepo) List(ctx context.Context, filter dto.DepositoFilter) ([]model.Deposito, int64, error) {
	var depositos []model.Deposito
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Deposito{})

	if filter.Ciudad != "" {
		q = q.Where("ciudad = ?", filter.Ciudad)
	}
	if filter.Fecha != "" {
		q = q.Where("fecha = ?", filter.Fecha)
	}
	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado = ?", filter.Estado)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Ventas").
		Order("fecha DESC, created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&depositos).Error

	return depositos, total, err
}
