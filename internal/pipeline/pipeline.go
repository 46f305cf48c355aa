package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/couchcryptid/sep-event-etl/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Extractor reads the raw, all-text catalog.
type Extractor interface {
	Extract(ctx context.Context) (*domain.Table, error)
}

// Transformer normalizes a raw catalog and derives the delay columns.
type Transformer interface {
	Normalize(ctx context.Context, raw *domain.Table) (*domain.Table, domain.NormalizeReport, error)
	Derive(ctx context.Context, normalized *domain.Table) (*domain.Table, error)
}

// SnapshotStore caches the normalized and derived tables between runs.
// Load returns an error matching fs.ErrNotExist when nothing is cached.
type SnapshotStore interface {
	Load(ctx context.Context) (source, derived *domain.Table, err error)
	Save(ctx context.Context, source, derived *domain.Table) error
}

// RecordSink receives the delay records of a run.
type RecordSink interface {
	Name() string
	WriteRecords(ctx context.Context, records []domain.DelayRecord) error
}

// Dataset is the catalog ready for validation and export.
type Dataset struct {
	// Source is the normalized catalog before delay computation. Its delay
	// columns, when present, are the values supplied with the catalog.
	Source *domain.Table
	// Derived carries every recomputed delay column.
	Derived *domain.Table
	// FromSnapshot is true when both tables came from the snapshot.
	FromSnapshot bool
	// Normalize describes the coercions of a regenerated dataset. It is
	// empty when the dataset came from the snapshot.
	Normalize domain.NormalizeReport
}

// Pipeline orchestrates extract, normalize, derive, and snapshot.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	store       SnapshotStore
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
}

// New creates a Pipeline with the given stages and observability. A nil store
// disables the snapshot; a nil clock uses the real time.
func New(e Extractor, t Transformer, store SnapshotStore, logger *slog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		store:       store,
		logger:      logger,
		metrics:     metrics,
		clock:       clock,
	}
}

// LoadDataset returns the snapshot when one is usable and forceRefresh is
// false. Otherwise it regenerates the dataset from the catalog and replaces
// the snapshot.
func (p *Pipeline) LoadDataset(ctx context.Context, forceRefresh bool) (Dataset, error) {
	if p.store != nil && !forceRefresh {
		if ds, ok := p.loadSnapshot(ctx); ok {
			return ds, nil
		}
	} else if forceRefresh {
		p.metrics.SnapshotLoads.WithLabelValues("refresh").Inc()
		p.logger.Info("snapshot refresh forced")
	}
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}

	ds, err := p.regenerate(ctx)
	if err != nil {
		return Dataset{}, err
	}

	if p.store != nil {
		err := p.stage("snapshot", func() error { return p.store.Save(ctx, ds.Source, ds.Derived) })
		if err != nil {
			// The dataset is still usable; the next run regenerates it again.
			p.logger.Warn("snapshot save failed", "error", err)
		}
	}
	return ds, nil
}

func (p *Pipeline) loadSnapshot(ctx context.Context) (Dataset, bool) {
	var source, derived *domain.Table
	err := p.stage("snapshot_load", func() error {
		var err error
		source, derived, err = p.store.Load(ctx)
		return err
	})
	switch {
	case err == nil:
		p.metrics.SnapshotLoads.WithLabelValues("hit").Inc()
		p.logger.Info("dataset loaded from snapshot", "rows", derived.Len(), "columns", derived.Width())
		return Dataset{Source: source, Derived: derived, FromSnapshot: true}, true
	case errors.Is(err, fs.ErrNotExist):
		p.metrics.SnapshotLoads.WithLabelValues("miss").Inc()
		p.logger.Info("no snapshot, regenerating dataset")
	default:
		p.metrics.SnapshotLoads.WithLabelValues("error").Inc()
		p.logger.Warn("snapshot unusable, regenerating dataset", "error", err)
	}
	return Dataset{}, false
}

func (p *Pipeline) regenerate(ctx context.Context) (Dataset, error) {
	var (
		ds  Dataset
		raw *domain.Table
	)
	err := p.stage("extract", func() error {
		var err error
		raw, err = p.extractor.Extract(ctx)
		return err
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("extract: %w", err)
	}
	p.metrics.RowsLoaded.Add(float64(raw.Len()))

	err = p.stage("normalize", func() error {
		var err error
		ds.Source, ds.Normalize, err = p.transformer.Normalize(ctx, raw)
		return err
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("normalize: %w", err)
	}
	for _, c := range ds.Normalize.Changes {
		p.metrics.ParseFailures.WithLabelValues(c.Column).Inc()
	}

	err = p.stage("derive", func() error {
		var err error
		ds.Derived, err = p.transformer.Derive(ctx, ds.Source)
		return err
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("derive: %w", err)
	}
	p.recordDelayCounts(ds.Derived)

	p.logger.Info("dataset regenerated",
		"rows", ds.Derived.Len(),
		"columns", ds.Derived.Width(),
		"coerced_to_null", len(ds.Normalize.Changes),
	)
	return ds, nil
}

// Export flattens the derived table into delay records and writes them to
// every sink. A failing sink does not stop the others.
func (p *Pipeline) Export(ctx context.Context, derived *domain.Table, sinks ...RecordSink) error {
	if len(sinks) == 0 {
		return nil
	}
	records, err := domain.DelayRecords(derived)
	if err != nil {
		return fmt.Errorf("build delay records: %w", err)
	}

	var errs []error
	for _, sink := range sinks {
		err := p.stage("export_"+sink.Name(), func() error { return sink.WriteRecords(ctx, records) })
		if err != nil {
			p.logger.Error("export failed", "sink", sink.Name(), "error", err)
			errs = append(errs, fmt.Errorf("export to %s: %w", sink.Name(), err))
			continue
		}
		p.metrics.RecordsExported.WithLabelValues(sink.Name()).Add(float64(len(records)))
	}
	return errors.Join(errs...)
}

func (p *Pipeline) recordDelayCounts(t *domain.Table) {
	for _, f := range domain.DelayFamilies() {
		n := 0
		for _, e := range domain.EventTypes() {
			if c, ok := t.Column(f.Field(e).Column()); ok {
				n += c.NonNull()
			}
		}
		p.metrics.DelaysComputed.WithLabelValues(f.Slug()).Add(float64(n))
	}
}

// stage runs fn and records its duration.
func (p *Pipeline) stage(name string, fn func() error) error {
	start := p.clock.Now()
	p.logger.Debug("stage started", "stage", name)
	err := fn()
	elapsed := p.clock.Since(start)
	p.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	p.logger.Debug("stage finished", "stage", name, "duration", elapsed, "ok", err == nil)
	return err
}
