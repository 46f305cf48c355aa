package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/couchcryptid/sep-event-etl/internal/adapter/catalogcsv"
	"github.com/couchcryptid/sep-event-etl/internal/adapter/snapshot"
	"github.com/couchcryptid/sep-event-etl/internal/config"
	"github.com/couchcryptid/sep-event-etl/internal/observability"
	"github.com/couchcryptid/sep-event-etl/internal/pipeline"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app carries the state shared by every subcommand.
type app struct {
	catalog  string
	refresh  bool
	logLevel string

	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "sepcat",
		Short:        "Explore the SEP event catalog",
		Long:         "Select subsets of the SEP event catalog and summarize the flux time series of its events.",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.catalog, "catalog", os.Getenv("CATALOG_PATH"), "catalog CSV file, optionally gzipped (env CATALOG_PATH)")
	flags.BoolVar(&a.refresh, "refresh", false, "ignore the snapshot and regenerate the dataset")
	flags.StringVar(&a.logLevel, "log-level", sharedcfg.EnvOrDefault("LOG_LEVEL", "warn"), "log level: debug, info, warn, error")

	root.AddCommand(newSelectCmd(a), newFluxCmd(a))
	return root
}

func (a *app) init() error {
	cfg, err := config.LoadCatalog(a.catalog)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.logger == nil {
		a.logger = sharedobs.NewLogger(a.logLevel, "text")
	}
	if a.clock == nil {
		a.clock = clockwork.NewRealClock()
	}
	a.metrics = observability.NewMetrics(prometheus.NewRegistry())
	return nil
}

// dataset loads the derived catalog through the snapshot cache.
func (a *app) dataset(ctx context.Context) (pipeline.Dataset, error) {
	p := pipeline.New(
		catalogcsv.NewReader(a.cfg.CatalogPath, a.logger),
		pipeline.NewTransformer(a.logger),
		snapshot.NewStore(a.cfg.SnapshotPath, a.clock),
		a.logger, a.metrics, a.clock,
	)
	return p.LoadDataset(ctx, a.refresh || a.cfg.ForceRefresh)
}
