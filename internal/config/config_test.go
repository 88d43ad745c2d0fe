package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SLA_SCAN_INTERVAL", "")
	t.Setenv("SLA_SCAN_BATCH_SIZE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.SLA.ScanInterval)
	assert.Equal(t, 200, cfg.SLA.ScanBatchSize)
	assert.Equal(t, 4*time.Minute, cfg.SLA.LeaseTTL)
	assert.InDelta(t, 0.25, cfg.SLA.AtRiskRatio, 1e-9)
	assert.Equal(t, "migrations", cfg.Postgres.MigrationsDir)
	assert.Equal(t, 30*time.Second, cfg.Auth.ClockSkew)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SLA_SCAN_INTERVAL", "90s")
	t.Setenv("SLA_SCAN_BATCH_SIZE", "25")
	t.Setenv("CATALOG_FILE", "/etc/helpdesk/catalog.yaml")
	t.Setenv("CATALOG_WATCH", "true")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_CLOCK_SKEW", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.SLA.ScanInterval)
	assert.Equal(t, 25, cfg.SLA.ScanBatchSize)
	assert.Equal(t, "/etc/helpdesk/catalog.yaml", cfg.Catalog.File)
	assert.True(t, cfg.Catalog.Watch)
	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, 2*time.Minute, cfg.Auth.ClockSkew)
}

func TestLoad_RejectsInvalidScanSettings(t *testing.T) {
	t.Setenv("SLA_SCAN_BATCH_SIZE", "-1")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")
	_, err := Load()
	assert.Error(t, err)
}
