// internal/storage/db.go
package storage

import (
	"fmt"

	"github.com/JudeDesigns/attendance-sub000/internal/config"
	"github.com/JudeDesigns/attendance-sub000/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// partialIndexes back the one-open-session and one-open-break invariants at the store level.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_work_sessions_one_open ON work_sessions (employee_id) WHERE state = 'OPEN'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_break_sessions_one_open ON break_sessions (work_session_id) WHERE ended_at IS NULL`,
}

func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DB.Driver {
	case "sqlite":
		db, err = OpenSQLite(cfg.DB.Path, gcfg)
	default:
		db, err = gorm.Open(postgres.Open(cfg.DB.DSN(cfg.TimeZone)), gcfg)
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens a SQLite database. SQLite serialises writers, so the pool holds one connection.
func OpenSQLite(path string, gcfg *gorm.Config) (*gorm.DB, error) {
	if gcfg == nil {
		gcfg = &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)}
	}
	db, err := gorm.Open(sqlite.Open(path), gcfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Location{},
		&models.ScheduledShift{},
		&models.WorkSession{},
		&models.BreakSession{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	for _, q := range partialIndexes {
		if err := db.Exec(q).Error; err != nil {
			return fmt.Errorf("migrate index: %w", err)
		}
	}
	return nil
}
