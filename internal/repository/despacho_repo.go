package repository

import (
	"context"

	"distripos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DespachoRepository interface {
	Create(ctx context.Context, d *model.Despacho) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Despacho, error)
	UpdateEstadoTx(tx *gorm.DB, id uuid.UUID, estado string) error
	ListPorCiudad(ctx context.Context, ciudad string, limit int) ([]model.Despacho, error)
	DB() *gorm.DB
}

type despachoRepo struct{ db *gorm.DB }

func NewDespachoRepository(db *gorm.DB) DespachoRepository { return &despachoRepo{db: db} }

func (r *despachoRepo) DB() *gorm.DB { return r.db }

func (r *despachoRepo) Create(ctx context.Context, d *model.Despacho) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *despachoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Despacho, error) {
	var d model.Despacho
	err := r.db.WithContext(ctx).Preload("Items").First(&d, id).Error
	return &d, err
}

func (r *despachoRepo) UpdateEstadoTx(tx *gorm.DB, id uuid.UUID, estado string) error {
	return tx.Model(&model.Despacho{}).Where("id = ?", id).Update("estado", estado).Error
}

func (r *despachoRepo) ListPorCiudad(ctx context.Context, ciudad string, limit int) ([]model.Despacho, error) {
	var despachos []model.Despacho
	err := r.db.WithContext(ctx).Preload("Items").
		Where("ciudad = ?", ciudad).
		Order("fecha DESC").Limit(limit).
		Find(&despachos).Error
	return despachos, err
}
