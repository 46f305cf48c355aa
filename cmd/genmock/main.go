// Command genmock generates a deterministic synthetic SEP catalog, and
// optionally the flux time-series files it references, for demos and test
// fixtures. The same seed always produces the same files.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock/sep_events.csv \
//	  -flux-dir data/mock \
//	  -rows 120 -seed 7 -inject-errors
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/sep-event-etl/internal/adapter/catalogcsv"
	"github.com/couchcryptid/sep-event-etl/internal/adapter/fluxseries"
	"github.com/couchcryptid/sep-event-etl/internal/domain"
)

const cellLayout = "2006-01-02 15:04:05"

var baseDate = time.Date(1986, time.January, 1, 0, 0, 0, 0, time.UTC)

// globalColumns is the column order of the published catalog.
var globalColumns = []string{
	domain.ColPeriodStart,
	domain.ColPeriodEnd,
	domain.ColFlarePeakTime,
	domain.ColCMEFirstLook,
	domain.ColFlareMagnitude,
	domain.ColCDAWSpeed,
	domain.ColDONKISpeed,
	domain.ColLongitude,
	domain.ColLatitude,
}

// detection is the probability that an event above the next lower threshold
// is also detected at this one, indexed by threshold position.
var detection = []float64{1, 0.6, 0.45, 0.35}

type options struct {
	out          string
	fluxDir      string
	rows         int
	seed         uint64
	injectErrors bool
}

// catalog is a generated catalog held as text cells keyed by column name.
type catalog struct {
	columns []string
	cells   map[string][]string
	series  map[string]*fluxseries.Series
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.out, "out", "", "output catalog path (.csv or .csv.gz)")
	flag.StringVar(&opts.fluxDir, "flux-dir", "", "directory for flux time-series files (optional)")
	flag.IntVar(&opts.rows, "rows", 48, "number of catalog rows (time periods)")
	flag.Uint64Var(&opts.seed, "seed", 1, "random seed")
	flag.BoolVar(&opts.injectErrors, "inject-errors", false, "add rows that fail the delay and longitude checks")
	flag.Parse()

	if opts.out == "" || opts.rows < 1 {
		flag.Usage()
		return errors.New("missing required flag -out or invalid -rows")
	}

	cat := generate(opts)
	t, err := cat.table()
	if err != nil {
		return fmt.Errorf("build catalog: %w", err)
	}
	if err := catalogcsv.WriteFile(opts.out, t); err != nil {
		return err
	}
	log.Printf("wrote catalog: %s (%d rows, %d columns)", opts.out, t.Len(), t.Width())

	if opts.fluxDir != "" {
		if err := cat.writeSeries(opts.fluxDir); err != nil {
			return err
		}
		log.Printf("wrote %d flux series to %s", len(cat.series), opts.fluxDir)
	}

	printStats(t)
	return nil
}

func newCatalog(rows int) *catalog {
	c := &catalog{cells: map[string][]string{}, series: map[string]*fluxseries.Series{}}
	c.columns = append(c.columns, globalColumns...)
	for _, e := range domain.EventTypes() {
		for _, suffix := range domain.CatalogSuffixes() {
			c.columns = append(c.columns, domain.Col(e, suffix))
		}
	}
	for _, name := range c.columns {
		c.cells[name] = make([]string, rows)
	}
	return c
}

func (c *catalog) set(name string, row int, format string, args ...any) {
	c.cells[name][row] = fmt.Sprintf(format, args...)
}

func (c *catalog) table() (*domain.Table, error) {
	cols := make([]*domain.Column, 0, len(c.columns))
	for _, name := range c.columns {
		values := c.cells[name]
		valid := make([]bool, len(values))
		for i, v := range values {
			valid[i] = v != ""
		}
		col, err := domain.NewTextColumn(name, values, valid)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return domain.NewTable(cols...)
}

func (c *catalog) writeSeries(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create flux dir: %w", err)
	}
	for name, s := range c.series {
		f, err := os.Create(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("create flux series: %w", err)
		}
		if err := fluxseries.Write(f, s); err != nil {
			f.Close()
			return fmt.Errorf("write flux series %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write flux series %s: %w", name, err)
		}
	}
	return nil
}

func generate(opts options) *catalog {
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed^0x9e3779b97f4a7c15))
	c := newCatalog(opts.rows)

	for row := 0; row < opts.rows; row++ {
		start := baseDate.Add(time.Duration(row) * 72 * time.Hour)
		c.set(domain.ColPeriodStart, row, "%s", start.Format(cellLayout))
		c.set(domain.ColPeriodEnd, row, "%s", start.Add(72*time.Hour).Format(cellLayout))

		if rng.Float64() < 0.35 {
			continue
		}
		flare := start.Add(minutes(rng.IntN(6 * 60)))
		c.set(domain.ColFlarePeakTime, row, "%s", flare.Format(cellLayout))
		c.set(domain.ColFlareMagnitude, row, "%.1e", math.Pow(10, -4-3*rng.Float64()))
		c.set(domain.ColLongitude, row, "%d", rng.IntN(181)-90)
		c.set(domain.ColLatitude, row, "%d", rng.IntN(61)-30)

		if rng.Float64() < 0.7 {
			cme := flare.Add(minutes(10 + rng.IntN(30)))
			speed := 400 + rng.IntN(2100)
			c.set(domain.ColCMEFirstLook, row, "%s", cme.Format(cellLayout))
			c.set(domain.ColCDAWSpeed, row, "%d", speed)
			c.set(domain.ColDONKISpeed, row, "%d", speed+rng.IntN(201)-100)
		}

		if rng.Float64() < 0.6 {
			c.addEvents(rng, row, flare)
		}
	}

	if opts.injectErrors {
		c.injectErrors()
	}
	return c
}

// addEvents fills the integral and above-background event types of one row.
// Higher thresholds are only crossed by events that crossed the lower ones.
func (c *catalog) addEvents(rng *rand.Rand, row int, flare time.Time) {
	types := domain.EventTypes()
	half := len(types) / 2
	sepStart := flare.Add(minutes(20 + rng.IntN(100)))
	for k := 0; k < half; k++ {
		if rng.Float64() >= detection[k] {
			return
		}
		sepStart = sepStart.Add(minutes(rng.IntN(30)))
		onset := sepStart.Add(minutes(20 + rng.IntN(280)))
		maxTime := onset.Add(minutes(rng.IntN(1500)))
		peak := 10 * math.Pow(10, 2*rng.Float64()) / float64(k+1)
		maxFlux := peak * (1 + 4*rng.Float64())

		// Above-background thresholds start earlier than the integral ones.
		early := minutes(5 + rng.IntN(40))
		c.addEvent(row, types[half+k], sepStart.Add(-early), onset, maxTime, peak/2, maxFlux)
		c.addEvent(row, types[k], sepStart, onset, maxTime, peak, maxFlux)
	}
}

func (c *catalog) addEvent(row int, e domain.EventType, sepStart, onset, maxTime time.Time, peak, maxFlux float64) {
	end := maxTime.Add(12 * time.Hour)
	file := fmt.Sprintf("%s_%s.txt", strings.ToLower(e.String()), sepStart.Format("20060102_1504"))

	c.set(domain.Col(e, domain.SuffixFluxTimeSeries), row, "%s", file)
	c.set(domain.Col(e, domain.SuffixSEPStartTime), row, "%s", sepStart.Format(cellLayout))
	c.set(domain.Col(e, domain.SuffixSEPEndTime), row, "%s", end.Format(cellLayout))
	c.set(domain.Col(e, domain.SuffixSEPDuration), row, "%.2f", end.Sub(sepStart).Hours())
	c.set(domain.Col(e, domain.SuffixOnsetPeak), row, "%.4g", peak)
	c.set(domain.Col(e, domain.SuffixOnsetPeakTime), row, "%s", onset.Format(cellLayout))
	c.set(domain.Col(e, domain.SuffixRiseTimeToOnset), row, "%g", domain.DelayMinutes(onset, sepStart))
	c.set(domain.Col(e, domain.SuffixMaxFlux), row, "%.4g", maxFlux)
	c.set(domain.Col(e, domain.SuffixMaxFluxTime), row, "%s", maxTime.Format(cellLayout))
	c.set(domain.Col(e, domain.SuffixRiseTimeToMax), row, "%g", domain.DelayMinutes(maxTime, sepStart))
	c.set(domain.Col(e, domain.SuffixFluence), row, "%.4e", maxFlux*end.Sub(sepStart).Seconds())
	c.set(domain.Col(e, domain.SuffixFluenceSpectrum), row, "[%.3e, %.3e, %.3e, %.3e]",
		maxFlux*1e5, maxFlux*3e4, maxFlux*1e4, maxFlux*2e3)
	c.set(domain.Col(e, domain.SuffixFluenceEnergyBins), row, "%s", "[[10, 30], [30, 50], [50, 100], [100, -1]]")
	c.set(domain.Col(e, domain.SuffixFluenceBinCenters), row, "%s", "[17.3, 38.7, 70.7, 100]")

	c.series[file] = syntheticSeries(file, sepStart, onset, maxTime, end, peak, maxFlux)
}

// syntheticSeries samples a piecewise-linear profile every five minutes:
// background, rise to the onset peak, rise to the maximum, then decay.
func syntheticSeries(name string, sepStart, onset, maxTime, end time.Time, peak, maxFlux float64) *fluxseries.Series {
	const background = 0.1
	s := &fluxseries.Series{Name: name}
	for t := sepStart.Add(-time.Hour); !t.After(end); t = t.Add(5 * time.Minute) {
		var flux float64
		switch {
		case t.Before(sepStart):
			flux = background
		case t.Before(onset):
			flux = lerp(background, peak, t.Sub(sepStart), onset.Sub(sepStart))
		case t.Before(maxTime):
			flux = lerp(peak, maxFlux, t.Sub(onset), maxTime.Sub(onset))
		default:
			flux = lerp(maxFlux, background, t.Sub(maxTime), end.Sub(maxTime))
		}
		s.Points = append(s.Points, fluxseries.Point{Time: t, Flux: flux})
	}
	return s
}

func lerp(from, to float64, elapsed, total time.Duration) float64 {
	if total <= 0 {
		return to
	}
	return from + (to-from)*float64(elapsed)/float64(total)
}

// injectErrors corrupts a few cells so every validator has something to report:
// a stored rise time that disagrees with its timestamps, a flare peak after the
// SEP onset peak, and a longitude outside [-180, 180].
func (c *catalog) injectErrors() {
	rise := domain.Col(domain.TC10, domain.SuffixRiseTimeToMax)
	for row, v := range c.cells[rise] {
		if v != "" {
			c.set(rise, row, "%s5", v)
			break
		}
	}

	onsetCol := domain.Col(domain.TC10, domain.SuffixOnsetPeakTime)
	for row := len(c.cells[onsetCol]) - 1; row >= 0; row-- {
		onset, err := domain.ParseTimestamp(c.cells[onsetCol][row])
		if err != nil {
			continue
		}
		c.set(domain.ColFlarePeakTime, row, "%s", onset.Add(30*time.Minute).Format(cellLayout))
		break
	}

	for row, v := range c.cells[domain.ColLongitude] {
		if v != "" {
			c.set(domain.ColLongitude, row, "%d", 200)
			break
		}
	}
}

func printStats(t *domain.Table) {
	for _, e := range domain.EventTypes() {
		col, ok := t.Column(domain.Col(e, domain.SuffixSEPStartTime))
		if !ok {
			continue
		}
		log.Printf("  %-7s %d events", e, col.NonNull())
	}
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
