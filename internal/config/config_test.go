package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = "/data/sep/catalog.csv"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CATALOG_PATH", testCatalog)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testCatalog, cfg.CatalogPath)
	assert.Equal(t, testCatalog+".snapshot.zst", cfg.SnapshotPath)
	assert.False(t, cfg.ForceRefresh)
	assert.Equal(t, "reports", cfg.ReportDir)
	assert.Equal(t, "strict", cfg.ValidationMode)
	assert.InDelta(t, 1e-6, cfg.DelayTolerance, 0)
	assert.Equal(t, "/data/sep", cfg.FluxDir)
	assert.Equal(t, 64, cfg.FluxCacheSize)
	assert.Empty(t, cfg.ParquetPath)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.KafkaEnabled())
	assert.Equal(t, "sep-event-delays", cfg.KafkaTopic)
	assert.Equal(t, 3, cfg.KafkaWriteAttempts)
	assert.Empty(t, cfg.MetricsTextfile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("CATALOG_PATH", testCatalog)
	t.Setenv("SNAPSHOT_PATH", "/cache/catalog.zst")
	t.Setenv("FORCE_REFRESH", "true")
	t.Setenv("REPORT_DIR", "/tmp/reports")
	t.Setenv("VALIDATION_MODE", " Audit ")
	t.Setenv("DELAY_TOLERANCE", "0.01")
	t.Setenv("FLUX_DIR", "/data/flux")
	t.Setenv("FLUX_CACHE_SIZE", "8")
	t.Setenv("PARQUET_PATH", "/out/delays.parquet")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-delays")
	t.Setenv("KAFKA_WRITE_ATTEMPTS", "5")
	t.Setenv("METRICS_TEXTFILE", "/var/lib/node_exporter/sep_etl.prom")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/cache/catalog.zst", cfg.SnapshotPath)
	assert.True(t, cfg.ForceRefresh)
	assert.Equal(t, "/tmp/reports", cfg.ReportDir)
	assert.Equal(t, "audit", cfg.ValidationMode)
	assert.InDelta(t, 0.01, cfg.DelayTolerance, 0)
	assert.Equal(t, "/data/flux", cfg.FluxDir)
	assert.Equal(t, 8, cfg.FluxCacheSize)
	assert.Equal(t, "/out/delays.parquet", cfg.ParquetPath)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, "custom-delays", cfg.KafkaTopic)
	assert.Equal(t, 5, cfg.KafkaWriteAttempts)
	assert.Equal(t, "/var/lib/node_exporter/sep_etl.prom", cfg.MetricsTextfile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_MissingCatalog(t *testing.T) {
	t.Setenv("CATALOG_PATH", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CATALOG_PATH")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"FORCE_REFRESH", "sometimes"},
		{"VALIDATION_MODE", "lenient"},
		{"DELAY_TOLERANCE", "tiny"},
		{"DELAY_TOLERANCE", "-1"},
		{"FLUX_CACHE_SIZE", "0"},
		{"FLUX_CACHE_SIZE", "many"},
		{"KAFKA_WRITE_ATTEMPTS", "-2"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("CATALOG_PATH", testCatalog)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_TestModeAlias(t *testing.T) {
	t.Setenv("CATALOG_PATH", testCatalog)
	t.Setenv("VALIDATION_MODE", "test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.ValidationMode)
}

func TestLoad_SnapshotMustNotOverwriteCatalog(t *testing.T) {
	t.Setenv("CATALOG_PATH", testCatalog)
	t.Setenv("SNAPSHOT_PATH", testCatalog)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SNAPSHOT_PATH")
}

func TestLoadCatalog_OverridesEnv(t *testing.T) {
	t.Setenv("CATALOG_PATH", testCatalog)
	cfg, err := LoadCatalog("/other/catalog.csv.gz")
	require.NoError(t, err)
	assert.Equal(t, "/other/catalog.csv.gz", cfg.CatalogPath)
	assert.Equal(t, "/other/catalog.csv.gz.snapshot.zst", cfg.SnapshotPath)
	assert.Equal(t, "/other", cfg.FluxDir)
}
