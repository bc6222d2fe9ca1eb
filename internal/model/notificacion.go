package model

import (
	"time"

	"github.com/google/uuid"
)

// Notificacion is a queued WhatsApp message for a confirmed sale.
// Estado: "pendiente" | "enviada" | "error".
type Notificacion struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	VentaID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Telefono string    `gorm:"not null"`
	Mensaje  string    `gorm:"not null"`
	Estado   string    `gorm:"type:varchar(20);not null;default:'pendiente'"`
	// Retry fields — used by retry_cron to re-attempt failed deliveries
	RetryCount  int        `gorm:"not null;default:0"`
	NextRetryAt *time.Time `gorm:"column:next_retry_at"`
	LastError   *string
	EnviadaAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides GORM's default pluralization.
func (Notificacion) TableName() string { return "notificaciones" }
