package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/sep-event-etl/internal/adapter/catalogcsv"
	kafkaadapter "github.com/couchcryptid/sep-event-etl/internal/adapter/kafka"
	"github.com/couchcryptid/sep-event-etl/internal/adapter/parquet"
	"github.com/couchcryptid/sep-event-etl/internal/adapter/snapshot"
	"github.com/couchcryptid/sep-event-etl/internal/config"
	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/couchcryptid/sep-event-etl/internal/observability"
	"github.com/couchcryptid/sep-event-etl/internal/pipeline"
	"github.com/couchcryptid/sep-event-etl/internal/report"
	"github.com/couchcryptid/sep-event-etl/internal/validation"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// errValidation marks a run whose data failed at least one check. Reports and
// exports are still written.
var errValidation = errors.New("validation failed")

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger, clockwork.NewRealClock())
	stop()
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
	logger.Info("run complete")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, clock clockwork.Clock) error {
	mode, err := validation.ParseMode(cfg.ValidationMode)
	if err != nil {
		return err
	}
	tol := validation.Tolerance{Rel: cfg.DelayTolerance, Abs: cfg.DelayTolerance}

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	defer func() {
		if cfg.MetricsTextfile == "" {
			return
		}
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("failed to write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
		}
	}()

	p := pipeline.New(
		catalogcsv.NewReader(cfg.CatalogPath, logger),
		pipeline.NewTransformer(logger),
		snapshot.NewStore(cfg.SnapshotPath, clock),
		logger, metrics, clock,
	)

	ds, err := p.LoadDataset(ctx, cfg.ForceRefresh)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	logger.Info("dataset ready", "rows", ds.Derived.Len(), "from_snapshot", ds.FromSnapshot)

	reports := report.NewWriter(cfg.ReportDir, clock)
	checks := checker{
		reports: reports,
		metrics: metrics,
		logger:  logger,
	}
	checks.auditSource(ds.Source, tol)
	checks.checkDerived(ds.Derived, validation.New(mode, tol, logger))

	var sinks []pipeline.RecordSink
	if cfg.ParquetPath != "" {
		sinks = append(sinks, parquet.NewWriter(cfg.ParquetPath, logger))
	}
	if cfg.KafkaEnabled() {
		w := kafkaadapter.NewWriter(cfg, clock, logger)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sinks = append(sinks, w)
	}
	if err := p.Export(ctx, ds.Derived, sinks...); err != nil {
		return fmt.Errorf("export: %w", err)
	}

	if len(checks.failed) > 0 {
		return fmt.Errorf("%w: %v", errValidation, checks.failed)
	}
	return nil
}

// checker runs the validators over a dataset, writes their reports, and
// remembers which checks failed.
type checker struct {
	reports *report.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
	failed  []string
}

// auditSource compares the rise times supplied with the catalog against their
// timestamps. Discrepancies are reported but do not fail the run. A family
// whose columns the catalog lacks is skipped on its own.
func (c *checker) auditSource(source *domain.Table, tol validation.Tolerance) {
	auditor := validation.New(validation.ModeAudit, tol, c.logger)
	for _, f := range []domain.DelayFamily{domain.SEPToPeak, domain.SEPToMax} {
		r, err := auditor.CheckDelays(source, f)
		if errors.Is(err, domain.ErrMissingColumn) {
			c.logger.Warn("catalog has no rise time columns, skipping source audit", "family", f.Slug(), "error", err)
			continue
		}
		if err != nil {
			c.logger.Warn("source rise times disagree with their timestamps", "family", f.Slug(), "error", err)
		}
		c.writeMismatches("source_", "source", []validation.EqualityReport{r})
	}
}

// checkDerived runs the equality, sign, and longitude checks on the derived
// table.
func (c *checker) checkDerived(derived *domain.Table, v *validation.Validator) {
	c.logger.Info("validating derived catalog", "mode", v.Mode().String())

	results, err := v.CheckAllDelays(derived)
	c.writeMismatches("", "derived", results)
	c.fail("delay equality", err)

	signs, err := v.CheckSigns(derived)
	for f, violations := range signs.Violations {
		c.metrics.NegativeDelays.WithLabelValues(f.Slug()).Add(float64(len(violations)))
	}
	if paths, werr := c.reports.WriteSignViolations(signs); werr != nil {
		c.logger.Error("failed to write sign report", "error", werr)
	} else {
		c.logger.Debug("sign reports written", "files", paths)
	}
	c.fail("delay signs", err)

	lon, err := v.CheckLongitude(derived)
	c.metrics.LongitudeOutOfRange.Add(float64(len(lon.Violations)))
	if _, werr := c.reports.WriteLongitude(lon); werr != nil {
		c.logger.Error("failed to write longitude report", "error", werr)
	}
	c.fail("longitude range", err)
}

func (c *checker) writeMismatches(prefix, stage string, results []validation.EqualityReport) {
	for _, r := range results {
		c.metrics.DelayMismatches.WithLabelValues(r.Family.Slug(), stage).Add(float64(len(r.Mismatches)))
		if _, err := c.reports.WriteMismatches(prefix, r); err != nil {
			c.logger.Error("failed to write mismatch report", "family", r.Family.Slug(), "error", err)
		}
	}
}

func (c *checker) fail(check string, err error) {
	if err == nil {
		return
	}
	c.logger.Error("check failed", "check", check, "error", err)
	c.failed = append(c.failed, check)
}
