package repository

import (
	"context"
	"time"

	"distripos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificacionRepository interface {
	Create(ctx context.Context, n *model.Notificacion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Notificacion, error)
	MarcarEnviada(ctx context.Context, id uuid.UUID) error
	MarcarError(ctx context.Context, id uuid.UUID, lastError string) error
	ProgramarRetry(ctx context.Context, id uuid.UUID, nextRetryAt time.Time, lastError string) error
	ListPendientesRetry(ctx context.Context, limit int) ([]model.Notificacion, error)
	DB() *gorm.DB
}

type notificacionRepo struct{ db *gorm.DB }

func NewNotificacionRepository(db *gorm.DB) NotificacionRepository {
	return &notificacionRepo{db: db}
}

func (r *notificacionRepo) DB() *gorm.DB { return r.db }

func (r *notificacionRepo) Create(ctx context.Context, n *model.Notificacion) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificacionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Notificacion, error) {
	var n model.Notificacion
	err := r.db.WithContext(ctx).First(&n, id).Error
	return &n, err
}

func (r *notificacionRepo) MarcarEnviada(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Notificacion{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"estado":        "enviada",
			"enviada_at":    time.Now().UTC(),
			"next_retry_at": nil,
			"last_error":    nil,
		}).Error
}

func (r *notificacionRepo) MarcarError(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.db.WithContext(ctx).Model(&model.Notificacion{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"estado":        "error",
			"next_retry_at": nil,
			"last_error":    lastError,
		}).Error
}

func (r *notificacionRepo) ProgramarRetry(ctx context.Context, id uuid.UUID, nextRetryAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).Model(&model.Notificacion{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"retry_count":   gorm.Expr("retry_count + 1"),
			"next_retry_at": nextRetryAt,
			"last_error":    lastError,
		}).Error
}

// ListPendientesRetry feeds the retry cron: pending notifications whose
// next_retry_at already passed.
func (r *notificacionRepo) ListPendientesRetry(ctx context.Context, limit int) ([]model.Notificacion, error) {
	var notifs []model.Notificacion
	err := r.db.WithContext(ctx).
		Where("estado = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", "pendiente", time.Now().UTC()).
		Order("next_retry_at ASC").Limit(limit).
		Find(&notifs).Error
	return notifs, err
}
