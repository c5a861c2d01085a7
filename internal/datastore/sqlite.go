package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/magpi/listener/internal/conf"
	"github.com/magpi/listener/internal/errors"
	"github.com/magpi/listener/internal/logging"
)

// SQLiteStore implements Interface for SQLite.
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open sets up the SQLite database connection and runs migrations.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Output.DBPath
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(fmt.Errorf("failed to create database directory: %w", err)).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("db_path", path).
				Build()
		}
	}

	logLevel := logger.Silent
	if store.Settings.Debug {
		logLevel = logger.Warn
	}
	gormLogger := logger.New(
		gormLogWriter{log: logging.ForService("datastore")},
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return errors.New(fmt.Errorf("failed to open SQLite database: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_path", path).
			Build()
	}

	store.DB = db
	return store.migrate()
}

func (store *SQLiteStore) migrate() error {
	if err := store.DB.AutoMigrate(&Detection{}); err != nil {
		return errors.New(fmt.Errorf("failed to migrate database schema: %w", err)).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// Close releases the underlying connection pool.
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return fmt.Errorf("getting database handle: %w", err)
	}
	return sqlDB.Close()
}

// gormLogWriter routes GORM log lines through the structured logger.
type gormLogWriter struct {
	log interface{ Warn(msg string, args ...any) }
}

func (w gormLogWriter) Printf(format string, args ...any) {
	w.log.Warn(fmt.Sprintf(format, args...))
}
