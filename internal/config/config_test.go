package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 2*time.Second, cfg.Wizard.NoticeDelay)
	assert.Equal(t, 2*time.Hour, cfg.JWT.AccessTTL)
	assert.Equal(t, "5.00", cfg.Checkout.Shipping().StringFixed(2))
	assert.False(t, cfg.IsRemote())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: "9090"
database:
  driver: sqlite
  dsn: file:shop.db
remote:
  base_url: https://api.example.com/api
wizard:
  notice_delay: 500ms
checkout:
  shipping_cost: "7.5"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("SHOPSMART_SERVER_PORT", "7070")
	t.Setenv("SHOPSMART_STORAGE_BUCKET", "fotos")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "fotos", cfg.Storage.Bucket)
	assert.Equal(t, 500*time.Millisecond, cfg.Wizard.NoticeDelay)
	assert.Equal(t, "7.50", cfg.Checkout.Shipping().StringFixed(2))
	assert.True(t, cfg.IsRemote())
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("SHOPSMART_DATABASE_DRIVER", "mysql")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
