// package database provides sqlite connection management.
package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/blockedby/dispatch-os/internal/models"
)

// DB wraps a GORM instance over sqlite.
type DB struct {
	GORM *gorm.DB
}

// New opens the sqlite database at path and migrates the schema.
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	gormDB, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := gormDB.AutoMigrate(&models.DeliveryLog{}, &models.OwnerCredential{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &DB{GORM: gormDB}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	sqlDB, err := db.GORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks if the database is reachable.
func (db *DB) Ping() error {
	sqlDB, err := db.GORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
