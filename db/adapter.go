package db

import (
	"fmt"

	"github.com/kasuganosora/stealthguard/config"
	dbmysql "github.com/kasuganosora/stealthguard/db/mysql"
	dbsqlite "github.com/kasuganosora/stealthguard/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// Open returns a *gorm.DB for the configured database mode. An empty
// sqlite path opens a private in-memory store, which keeps the alert
// history for the life of the process only.
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Mode {
	case ModeSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = dbsqlite.MemoryPath
		}
		return dbsqlite.Open(path)
	case ModeMySQL:
		if cfg.MySQLDSN == "" {
			return nil, fmt.Errorf("db: mysql mode needs database.mysql_dsn")
		}
		return dbmysql.Open(dbmysql.Options{
			DSN:     cfg.MySQLDSN,
			MaxOpen: cfg.MySQLMaxOpen,
			MaxIdle: cfg.MySQLMaxIdle,
			MaxLife: cfg.MySQLMaxLife,
		})
	default:
		return nil, fmt.Errorf("db: unknown mode %q", cfg.Mode)
	}
}
