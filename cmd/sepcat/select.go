package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/sep-event-etl/internal/adapter/catalogcsv"
	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/spf13/cobra"
)

type selectOptions struct {
	eventType     string
	hemisphere    string
	lonMin        float64
	lonMax        float64
	minMagnitude  float64
	minCDAWSpeed  float64
	minDONKISpeed float64
	out           string
}

func newSelectCmd(a *app) *cobra.Command {
	var opts selectOptions
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select the events matching every given criterion",
		Long: `Select the catalog rows matching every given criterion. Without --out the
matching rows are listed; with --out they are written as CSV (gzipped when the
name ends in .gz) with every derived delay column.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.criteria(cmd)
			if err != nil {
				return err
			}
			ds, err := a.dataset(cmd.Context())
			if err != nil {
				return err
			}
			subset, err := domain.Select(ds.Derived, c)
			if err != nil {
				return err
			}
			a.logger.Info("selection complete", "rows", subset.Len(), "of", ds.Derived.Len())

			if opts.out != "" {
				if err := catalogcsv.WriteFile(opts.out, subset); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d of %d events to %s\n", subset.Len(), ds.Derived.Len(), opts.out)
				return nil
			}
			return printSelection(cmd.OutOrStdout(), subset)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.eventType, "event-type", "", "keep rows with an SEP event of this type (e.g. TC_10, AB_100)")
	f.StringVar(&opts.hemisphere, "hemisphere", "", "keep rows in the eastern or western hemisphere")
	f.Float64Var(&opts.lonMin, "lon-min", -180, "minimum event longitude in degrees")
	f.Float64Var(&opts.lonMax, "lon-max", 180, "maximum event longitude in degrees")
	f.Float64Var(&opts.minMagnitude, "min-magnitude", 0, "minimum flare magnitude (W/m^2)")
	f.Float64Var(&opts.minCDAWSpeed, "min-cdaw-speed", 0, "minimum CDAW CME speed (km/s)")
	f.Float64Var(&opts.minDONKISpeed, "min-donki-speed", 0, "minimum DONKI CME speed (km/s)")
	f.StringVar(&opts.out, "out", "", "write the selection to this CSV file")
	cmd.MarkFlagsMutuallyExclusive("hemisphere", "lon-min")
	cmd.MarkFlagsMutuallyExclusive("hemisphere", "lon-max")
	return cmd
}

// criteria turns the flags the user actually set into selection criteria.
func (o selectOptions) criteria(cmd *cobra.Command) (domain.Criteria, error) {
	var c domain.Criteria
	flags := cmd.Flags()

	if o.eventType != "" {
		e, err := domain.ParseEventType(o.eventType)
		if err != nil {
			return c, err
		}
		c.EventType = &e
	}

	switch strings.ToLower(o.hemisphere) {
	case "":
	case "east", "eastern":
		r := domain.Eastern
		c.Longitude = &r
	case "west", "western":
		r := domain.Western
		c.Longitude = &r
	default:
		return c, fmt.Errorf("invalid --hemisphere %q: must be eastern or western", o.hemisphere)
	}
	if flags.Changed("lon-min") || flags.Changed("lon-max") {
		if o.lonMin > o.lonMax {
			return c, errors.New("--lon-min must not exceed --lon-max")
		}
		c.Longitude = &domain.Range{Min: o.lonMin, Max: o.lonMax}
	}

	if flags.Changed("min-magnitude") {
		v := o.minMagnitude
		c.MinFlareMagnitude = &v
	}
	if flags.Changed("min-cdaw-speed") {
		v := o.minCDAWSpeed
		c.MinCDAWSpeed = &v
	}
	if flags.Changed("min-donki-speed") {
		v := o.minDONKISpeed
		c.MinDONKISpeed = &v
	}
	return c, nil
}

func printSelection(out io.Writer, t *domain.Table) error {
	magnitude, _ := t.Column(domain.ColFlareMagnitude)
	longitude, _ := t.Column(domain.ColLongitude)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tPERIOD START\tFLARE MAG\tLONGITUDE\tEVENT TYPES")
	for i := 0; i < t.Len(); i++ {
		var detected []string
		for _, e := range domain.EventTypes() {
			if c, ok := t.Column(domain.Col(e, domain.SuffixSEPStartTime)); ok && !c.IsNull(i) {
				detected = append(detected, e.String())
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			t.Index(i), t.RowLabel(i), formatCell(magnitude, i), formatCell(longitude, i), strings.Join(detected, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d events\n", t.Len())
	return err
}

func formatCell(c *domain.Column, i int) string {
	if c == nil || c.IsNull(i) {
		return "-"
	}
	return c.Format(i)
}
