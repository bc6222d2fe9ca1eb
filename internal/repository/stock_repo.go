package repository

import (
	"context"

	"distripos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepository is the data access layer of the city stock ledger.
// All mutating methods take a live *gorm.DB transaction: a state transition
// and its stock deltas always commit or roll back together.
type StockRepository interface {
	FindCelda(ctx context.Context, ciudad, sku string) (*model.StockCiudad, error)
	ListPorCiudad(ctx context.Context, ciudad string) ([]model.StockCiudad, error)

	// FindCeldaForUpdateTx locks the cell row (FOR UPDATE), creating it with
	// cantidad=0 when absent, so read-modify-write sequences are serialized.
	FindCeldaForUpdateTx(tx *gorm.DB, ciudad, sku string) (*model.StockCiudad, error)

	// DescontarTx runs the guarded atomic decrement
	// (cantidad = cantidad - n WHERE cantidad >= n) and reports whether a
	// row was updated.
	DescontarTx(tx *gorm.DB, ciudad, sku string, cantidad int) (bool, error)

	// IncrementarTx upserts the cell and adds cantidad.
	IncrementarTx(tx *gorm.DB, ciudad, sku string, cantidad int) error

	// SetCantidadTx overwrites the locked cell's quantity.
	SetCantidadTx(tx *gorm.DB, ciudad, sku string, cantidad int) error

	// MarcarDespachoAplicadoTx inserts the dispatch id into the idempotency
	// set; returns false when the id was already present.
	MarcarDespachoAplicadoTx(tx *gorm.DB, despachoID uuid.UUID) (bool, error)

	RegistrarMovimientoTx(tx *gorm.DB, mov *model.MovimientoStock) error
	ListMovimientos(ctx context.Context, ciudad, sku string, limit int) ([]model.MovimientoStock, error)

	DB() *gorm.DB
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) DB() *gorm.DB { return r.db }

func (r *stockRepo) FindCelda(ctx context.Context, ciudad, sku string) (*model.StockCiudad, error) {
	var c model.StockCiudad
	err := r.db.WithContext(ctx).Where("ciudad = ? AND sku = ?", ciudad, sku).First(&c).Error
	return &c, err
}

func (r *stockRepo) ListPorCiudad(ctx context.Context, ciudad string) ([]model.StockCiudad, error) {
	var celdas []model.StockCiudad
	err := r.db.WithContext(ctx).Where("ciudad = ?", ciudad).Order("sku ASC").Find(&celdas).Error
	return celdas, err
}

func (r *stockRepo) FindCeldaForUpdateTx(tx *gorm.DB, ciudad, sku string) (*model.StockCiudad, error) {
	var c model.StockCiudad
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("ciudad = ? AND sku = ?", ciudad, sku).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		c = model.StockCiudad{Ciudad: ciudad, Sku: sku, Cantidad: 0}
		if err := tx.Create(&c).Error; err != nil {
			return nil, err
		}
		return &c, nil
	}
	return &c, err
}

func (r *stockRepo) DescontarTx(tx *gorm.DB, ciudad, sku string, cantidad int) (bool, error) {
	res := tx.Model(&model.StockCiudad{}).
		Where("ciudad = ? AND sku = ? AND cantidad >= ?", ciudad, sku, cantidad).
		Update("cantidad", gorm.Expr("cantidad - ?", cantidad))
	return res.RowsAffected > 0, res.Error
}

func (r *stockRepo) IncrementarTx(tx *gorm.DB, ciudad, sku string, cantidad int) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ciudad"}, {Name: "sku"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"cantidad": gorm.Expr("stock_ciudades.cantidad + ?", cantidad)}),
	}).Create(&model.StockCiudad{Ciudad: ciudad, Sku: sku, Cantidad: cantidad}).Error
}

func (r *stockRepo) SetCantidadTx(tx *gorm.DB, ciudad, sku string, cantidad int) error {
	return tx.Model(&model.StockCiudad{}).
		Where("ciudad = ? AND sku = ?", ciudad, sku).
		Update("cantidad", cantidad).Error
}

func (r *stockRepo) MarcarDespachoAplicadoTx(tx *gorm.DB, despachoID uuid.UUID) (bool, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.DespachoAplicado{DespachoID: despachoID, AplicadoAt: tx.NowFunc()})
	return res.RowsAffected > 0, res.Error
}

func (r *stockRepo) RegistrarMovimientoTx(tx *gorm.DB, mov *model.MovimientoStock) error {
	return tx.Create(mov).Error
}

func (r *stockRepo) ListMovimientos(ctx context.Context, ciudad, sku string, limit int) ([]model.MovimientoStock, error) {
	var movs []model.MovimientoStock
	q := r.db.WithContext(ctx).Where("ciudad = ?", ciudad)
	if sku != "" {
		q = q.Where("sku = ?", sku)
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&movs).Error
	return movs, err
}
