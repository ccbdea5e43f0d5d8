/**
 * @description
 * Embedded SQLite connection manager using GORM.
 * Serves single-node deployments and tests; the same query layer runs on
 * either backend, only the Dialect capability set differs.
 *
 * @dependencies
 * - gorm.io/gorm: ORM library
 * - gorm.io/driver/sqlite: SQLite driver
 */

package db

import (
	"github.com/licitabot/backend/internal/config"
	"github.com/licitabot/backend/internal/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// ConnectSQLite opens (or creates) the embedded single-file database.
func ConnectSQLite(cfg *config.Config) (*gorm.DB, error) {
	gormLogLevel := gormLogger.Error
	if cfg.Server.Env == "development" {
		gormLogLevel = gormLogger.Info
	}

	db, err := gorm.Open(sqlite.Open(sqlitePath(cfg.DB.URL)), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY churn.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}

	logger.Info("✅ Opened SQLite database at %s", sqlitePath(cfg.DB.URL))
	return db, nil
}
