package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"huntbooking/internal/domain"
)

// Connect opens PostgreSQL for postgres:// DSNs and SQLite (modernc driver) otherwise.
func Connect(dsn string, loggerf func(format string, args ...interface{})) (*gorm.DB, error) {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		loggerf("level=info msg=connecting to postgresql")
		return gorm.Open(postgres.Open(dsn), cfg)
	}

	loggerf("level=info msg=using sqlite dsn=%s", dsn)
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{
			DriverName: "sqlite",
			DSN:        dsn,
		}),
		cfg,
	)
	if err != nil {
		return nil, err
	}

	// sqlite has a single writer; one connection serializes transactions instead of failing with SQLITE_BUSY
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates every table the engine owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Event{},
		&domain.InventoryMovement{},
		&domain.Coupon{},
		&domain.Booking{},
		&domain.AuditRecord{},
		&domain.PaymentIntent{},
		&domain.Notification{},
		&domain.AdminUser{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
