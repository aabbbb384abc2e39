// Package postgres implements the persistence port on GORM. The same
// repository runs against PostgreSQL in production and the pure-Go
// SQLite driver in tests.
package postgres

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the bridge tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&gVehicle{},
		&gSensor{},
		&gState{},
		&gCounter{},
		&gRunTime{},
	)
}
