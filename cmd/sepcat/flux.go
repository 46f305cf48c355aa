package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/sep-event-etl/internal/adapter/fluxseries"
	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/spf13/cobra"
)

func newFluxCmd(a *app) *cobra.Command {
	var eventType string
	cmd := &cobra.Command{
		Use:   "flux INDEX...",
		Short: "Summarize the flux time series of catalog events",
		Long: `Summarize the flux time series recorded for the catalog rows with the given
indexes: sample span, series peak, and the catalog's SEP start, onset peak, and
max flux markers with the flux measured nearest to each.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			indexes := make([]int, len(args))
			for i, arg := range args {
				n, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid index %q", arg)
				}
				indexes[i] = n
			}

			types := domain.EventTypes()
			if eventType != "" {
				e, err := domain.ParseEventType(eventType)
				if err != nil {
					return err
				}
				types = []domain.EventType{e}
			}

			ds, err := a.dataset(cmd.Context())
			if err != nil {
				return err
			}
			loader := fluxseries.NewCachedLoader(fluxseries.NewDirLoader(a.cfg.FluxDir), a.cfg.FluxCacheSize, a.metrics)

			out := cmd.OutOrStdout()
			for _, idx := range indexes {
				row, ok := domain.RowByIndex(ds.Derived, idx)
				if !ok {
					return fmt.Errorf("no catalog row with index %d", idx)
				}
				fmt.Fprintf(out, "Row %d (%s)\n", idx, ds.Derived.RowLabel(row))
				shown := 0
				for _, e := range types {
					name, ok := domain.FluxSeriesFile(ds.Derived, row, e)
					if !ok {
						continue
					}
					s, err := loader.Load(cmd.Context(), name)
					if err != nil {
						return err
					}
					printSeries(out, ds.Derived, row, e, s)
					shown++
				}
				if shown == 0 {
					fmt.Fprintln(out, "  no flux time series")
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&eventType, "event-type", "", "only this event type (e.g. TC_10)")
	return cmd
}

func printSeries(out io.Writer, t *domain.Table, row int, e domain.EventType, s *fluxseries.Series) {
	fmt.Fprintf(out, "  %s %s: %d samples\n", e, s.Name, len(s.Points))
	if first, last, ok := s.Span(); ok {
		fmt.Fprintf(out, "    span       %s .. %s\n", first.Format(domain.TimeLayout), last.Format(domain.TimeLayout))
	}
	if p, ok := s.Peak(); ok {
		fmt.Fprintf(out, "    peak       %s  %s pfu\n", p.Time.Format(domain.TimeLayout), formatFlux(p.Flux))
	}

	markers := []struct {
		label  string
		suffix string
	}{
		{"sep start", domain.SuffixSEPStartTime},
		{"onset peak", domain.SuffixOnsetPeakTime},
		{"max flux", domain.SuffixMaxFluxTime},
	}
	for _, m := range markers {
		at, ok := markerTime(t, row, e, m.suffix)
		if !ok {
			fmt.Fprintf(out, "    %-10s -\n", m.label)
			continue
		}
		line := fmt.Sprintf("    %-10s %s", m.label, at.Format(domain.TimeLayout))
		if p, ok := s.Nearest(at); ok {
			line += fmt.Sprintf("  %s pfu", formatFlux(p.Flux))
		}
		fmt.Fprintln(out, line)
	}
}

func markerTime(t *domain.Table, row int, e domain.EventType, suffix string) (time.Time, bool) {
	c, ok := t.Column(domain.Col(e, suffix))
	if !ok {
		return time.Time{}, false
	}
	return c.Time(row)
}

func formatFlux(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
