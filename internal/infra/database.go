package infra

import (
	"fmt"

	"distripos/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies idempotent SQL patches that GORM
// cannot express (partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations applies AutoMigrate plus schema patches.
// Also used directly by integration tests against a throwaway container.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Producto{},
		&model.Usuario{},
		&model.Venta{},
		&model.StockCiudad{},
		&model.MovimientoStock{},
		&model.Deposito{},
		&model.Despacho{},
		&model.DespachoItem{},
		&model.DespachoAplicado{},
		&model.Notificacion{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Each statement uses IF NOT EXISTS semantics so re-running is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// partial index for the notification retry cron query
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_notificaciones_pending_retry') THEN
		    CREATE INDEX idx_notificaciones_pending_retry
		        ON notificaciones (next_retry_at)
		        WHERE estado = 'pendiente' AND next_retry_at IS NOT NULL;
		  END IF;
		END $$`,
		// receivables listing scans confirmed/delivered sales not yet settled
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_ventas_pendientes_cobro') THEN
		    CREATE INDEX idx_ventas_pendientes_cobro
		        ON ventas (ciudad, fecha)
		        WHERE eliminado_de_pendientes_at IS NULL;
		  END IF;
		END $$`,
		// movement journal is queried per cell, newest first
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_movimientos_stock_celda') THEN
		    CREATE INDEX idx_movimientos_stock_celda
		        ON movimientos_stock (ciudad, sku, created_at DESC);
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("schema patch: %w", err)
		}
	}
	return nil
}
