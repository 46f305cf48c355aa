package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/sep-event-etl/internal/adapter/catalogcsv"
	"github.com/couchcryptid/sep-event-etl/internal/adapter/parquet"
	"github.com/couchcryptid/sep-event-etl/internal/config"
	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/couchcryptid/sep-event-etl/internal/domain/domaintest"
	"github.com/couchcryptid/sep-event-etl/internal/report"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runDirs struct {
	catalog, reports, parquet, metrics string
}

func setup(t *testing.T, rows ...domaintest.Row) (*config.Config, runDirs) {
	t.Helper()
	dir := t.TempDir()
	dirs := runDirs{
		catalog: filepath.Join(dir, "catalog.csv"),
		reports: filepath.Join(dir, "reports"),
		parquet: filepath.Join(dir, "out", "delays.parquet"),
		metrics: filepath.Join(dir, "sep_etl.prom"),
	}
	require.NoError(t, catalogcsv.WriteFile(dirs.catalog, domaintest.Raw(t, rows...)))

	t.Setenv("REPORT_DIR", dirs.reports)
	t.Setenv("PARQUET_PATH", dirs.parquet)
	t.Setenv("METRICS_TEXTFILE", dirs.metrics)
	t.Setenv("VALIDATION_MODE", "audit")
	cfg, err := config.LoadCatalog(dirs.catalog)
	require.NoError(t, err)
	return cfg, dirs
}

func newClock() clockwork.Clock {
	return clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
}

func TestRun_ConsistentCatalog(t *testing.T) {
	cfg, dirs := setup(t,
		domaintest.FlareEvent(),
		domaintest.QuietPeriod("2012-01-26 03:00:00", "-40", "1e-05"),
	)

	require.NoError(t, run(context.Background(), cfg, domaintest.Logger(), newClock()))

	for _, f := range domain.DelayFamilies() {
		assert.FileExists(t, filepath.Join(dirs.reports, report.SignViolationsFile(f)))
		assert.FileExists(t, filepath.Join(dirs.reports, report.MismatchesFile("", f)))
	}
	assert.FileExists(t, filepath.Join(dirs.reports, report.MismatchesFile("source_", domain.SEPToMax)))
	assert.FileExists(t, filepath.Join(dirs.reports, report.LongitudeFile))
	assert.FileExists(t, cfg.SnapshotPath)

	records, err := parquet.ReadRecords(dirs.parquet)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.TC10.String(), records[0].EventType)

	metrics, err := os.ReadFile(dirs.metrics)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "sep_etl_rows_loaded_total 2")
	assert.Contains(t, string(metrics), `sep_etl_snapshot_loads_total{result="miss"} 1`)
}

func TestRun_SecondRunUsesSnapshot(t *testing.T) {
	cfg, dirs := setup(t, domaintest.FlareEvent())
	require.NoError(t, run(context.Background(), cfg, domaintest.Logger(), newClock()))

	// The snapshot must be read even if the catalog disappears.
	require.NoError(t, os.Remove(dirs.catalog))
	require.NoError(t, run(context.Background(), cfg, domaintest.Logger(), newClock()))

	metrics, err := os.ReadFile(dirs.metrics)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `sep_etl_snapshot_loads_total{result="hit"} 1`)
}

func TestRun_InvalidDataFailsAfterReporting(t *testing.T) {
	cfg, dirs := setup(t,
		domaintest.FlareEvent(),
		domaintest.QuietPeriod("2012-01-26 03:00:00", "200", "1e-05"),
	)

	err := run(context.Background(), cfg, domaintest.Logger(), newClock())
	require.ErrorIs(t, err, errValidation)
	assert.Contains(t, err.Error(), "longitude range")

	data, err := os.ReadFile(filepath.Join(dirs.reports, report.LongitudeFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "(index=1): longitude 200")

	// Export still happens for a failing run.
	records, err := parquet.ReadRecords(dirs.parquet)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRun_SourceAuditDoesNotFailRun(t *testing.T) {
	row := domaintest.FlareEvent()
	ev := row.Events[domain.TC10]
	ev.RiseToMax = "2075"
	row.Events[domain.TC10] = ev
	cfg, dirs := setup(t, row)

	require.NoError(t, run(context.Background(), cfg, domaintest.Logger(), newClock()))

	data, err := os.ReadFile(filepath.Join(dirs.reports, report.MismatchesFile("source_", domain.SEPToMax)))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# 1 mismatches")

	metrics, err := os.ReadFile(dirs.metrics)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `sep_etl_delay_mismatches_total{family="`+domain.SEPToMax.Slug()+`",stage="source"} 1`)
}

func TestRun_SourceAuditSkipsOnlyMissingFamily(t *testing.T) {
	cfg, dirs := setup(t, domaintest.FlareEvent())

	// Rewrite the catalog without the rise-time-to-onset columns.
	omit := map[string]bool{}
	for _, e := range domain.EventTypes() {
		omit[domain.SEPToPeak.Field(e).Column()] = true
	}
	var cols []*domain.Column
	for _, c := range domaintest.Raw(t, domaintest.FlareEvent()).Columns() {
		if !omit[c.Name()] {
			cols = append(cols, c)
		}
	}
	raw, err := domain.NewTable(cols...)
	require.NoError(t, err)
	require.NoError(t, catalogcsv.WriteFile(dirs.catalog, raw))

	require.NoError(t, run(context.Background(), cfg, domaintest.Logger(), newClock()))

	assert.FileExists(t, filepath.Join(dirs.reports, report.MismatchesFile("source_", domain.SEPToMax)))
	assert.NoFileExists(t, filepath.Join(dirs.reports, report.MismatchesFile("source_", domain.SEPToPeak)))
	assert.FileExists(t, filepath.Join(dirs.reports, report.MismatchesFile("", domain.SEPToPeak)), "derived check still runs")
}

func TestRun_MissingCatalog(t *testing.T) {
	cfg, dirs := setup(t, domaintest.FlareEvent())
	require.NoError(t, os.Remove(dirs.catalog))

	err := run(context.Background(), cfg, domaintest.Logger(), newClock())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load dataset")
}
