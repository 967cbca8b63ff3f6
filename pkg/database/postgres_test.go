package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type migrateProbe struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func TestInitDB_SQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "shop.db")
	db, err := InitDB(Options{Driver: "sqlite", DSN: dsn}, &migrateProbe{})
	require.NoError(t, err)

	assert.True(t, db.Migrator().HasTable(&migrateProbe{}))
	require.NoError(t, db.Create(&migrateProbe{Name: "ok"}).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	sqlDB.Close()
}

func TestInitDB_UnknownDriver(t *testing.T) {
	_, err := InitDB(Options{Driver: "oracle"})
	assert.Error(t, err)
}
