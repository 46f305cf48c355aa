package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	CatalogPath  string
	SnapshotPath string
	ForceRefresh bool

	ReportDir      string
	ValidationMode string
	DelayTolerance float64

	// Flux time-series files referenced by the catalog.
	FluxDir       string
	FluxCacheSize int

	// Export sinks. Empty values disable the sink.
	ParquetPath        string
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaWriteAttempts int

	MetricsTextfile string
	LogLevel        string
	LogFormat       string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	return LoadCatalog(os.Getenv("CATALOG_PATH"))
}

// LoadCatalog is Load with the catalog path given by the caller instead of
// CATALOG_PATH. Defaults derived from the catalog path follow it.
func LoadCatalog(catalog string) (*Config, error) {
	if catalog == "" {
		return nil, errors.New("CATALOG_PATH is required")
	}

	forceRefresh, err := parseBool("FORCE_REFRESH")
	if err != nil {
		return nil, err
	}

	mode := strings.ToLower(strings.TrimSpace(sharedcfg.EnvOrDefault("VALIDATION_MODE", "strict")))
	switch mode {
	case "strict", "test", "audit":
	default:
		return nil, fmt.Errorf("invalid VALIDATION_MODE %q: must be strict or audit", mode)
	}

	tolerance, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("DELAY_TOLERANCE", "1e-6"), 64)
	if err != nil || tolerance < 0 {
		return nil, errors.New("invalid DELAY_TOLERANCE: must be a non-negative number")
	}

	cacheSize, err := parsePositiveInt("FLUX_CACHE_SIZE", 64)
	if err != nil {
		return nil, err
	}
	attempts, err := parsePositiveInt("KAFKA_WRITE_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CatalogPath:        catalog,
		SnapshotPath:       sharedcfg.EnvOrDefault("SNAPSHOT_PATH", catalog+".snapshot.zst"),
		ForceRefresh:       forceRefresh,
		ReportDir:          sharedcfg.EnvOrDefault("REPORT_DIR", "reports"),
		ValidationMode:     mode,
		DelayTolerance:     tolerance,
		FluxDir:            sharedcfg.EnvOrDefault("FLUX_DIR", filepath.Dir(catalog)),
		FluxCacheSize:      cacheSize,
		ParquetPath:        os.Getenv("PARQUET_PATH"),
		KafkaBrokers:       sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "sep-event-delays"),
		KafkaWriteAttempts: attempts,
		MetricsTextfile:    os.Getenv("METRICS_TEXTFILE"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
	}

	if cfg.SnapshotPath == cfg.CatalogPath {
		return nil, errors.New("SNAPSHOT_PATH must differ from CATALOG_PATH")
	}
	return cfg, nil
}

// KafkaEnabled reports whether delay records are published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseBool(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be a boolean", key)
	}
	return v, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}
