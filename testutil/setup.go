package testutil

import (
	"testing"

	"github.com/kasuganosora/stealthguard/cache"
	"github.com/kasuganosora/stealthguard/config"
	dbadapter "github.com/kasuganosora/stealthguard/db"
	dbsqlite "github.com/kasuganosora/stealthguard/db/sqlite"
	"github.com/kasuganosora/stealthguard/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB creates a private in-memory SQLite DB and runs AutoMigrate.
// It requires no external services and is safe to use in parallel tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dbadapter.Open(config.DatabaseConfig{
		Mode:       dbadapter.ModeSQLite,
		SQLitePath: dbsqlite.MemoryPath,
	})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(db), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SetupTestCache creates LocalCache and LocalPubSub (no Redis required).
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	cfg := cache.CacheConfig{} // empty RedisAddr → LocalCache
	c, ps, err := cache.Open(cfg)
	require.NoError(t, err, "SetupTestCache: Open")
	return c, ps
}
