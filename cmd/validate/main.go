// Command validate compares SEP catalogs produced by different runs or
// instruments. Every pair is checked for identical shape (column count, row
// count, column names and order) and then cell by cell, skipping cells that
// are null in both catalogs.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dataset CA=data/sep_events_CA.csv \
//	  -dataset CC=data/sep_events_CC.csv \
//	  -dataset KW=data/sep_events_KW.csv \
//	  -pairs CC:CA,CC:KW,KW:CA
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/couchcryptid/sep-event-etl/internal/adapter/catalogcsv"
	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/couchcryptid/sep-event-etl/internal/report"
	"github.com/couchcryptid/sep-event-etl/internal/validation"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// dataset is one named catalog given on the command line.
type dataset struct {
	name string
	path string
}

// datasetFlag collects repeated -dataset NAME=PATH flags.
type datasetFlag []dataset

func (d *datasetFlag) String() string {
	parts := make([]string, len(*d))
	for i, ds := range *d {
		parts[i] = ds.name + "=" + ds.path
	}
	return strings.Join(parts, ",")
}

func (d *datasetFlag) Set(v string) error {
	name, path, ok := strings.Cut(v, "=")
	name, path = strings.TrimSpace(name), strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return fmt.Errorf("want NAME=PATH, got %q", v)
	}
	for _, ds := range *d {
		if ds.name == name {
			return fmt.Errorf("dataset %q given twice", name)
		}
	}
	*d = append(*d, dataset{name: name, path: path})
	return nil
}

type pair struct{ left, right string }

func main() {
	var datasets datasetFlag
	flag.Var(&datasets, "dataset", "catalog to compare as NAME=PATH (repeat, at least two)")
	pairs := flag.String("pairs", "", "comma-separated LEFT:RIGHT pairs to compare (default: every pair in flag order)")
	mode := flag.String("mode", "audit", "strict stops a pair at its first difference; audit lists every difference")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	if len(datasets) < 2 {
		flag.Usage()
		os.Exit(1)
	}
	m, err := validation.ParseMode(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	selected, err := parsePairs(*pairs, datasets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(*logLevel, "text")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := run(ctx, datasets, selected, validation.New(m, validation.DefaultTolerance, logger), logger, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

// parsePairs resolves the -pairs flag against the known dataset names.
func parsePairs(list string, datasets []dataset) ([]pair, error) {
	known := make(map[string]bool, len(datasets))
	for _, ds := range datasets {
		known[ds.name] = true
	}
	if strings.TrimSpace(list) == "" {
		var out []pair
		for i := range datasets {
			for j := i + 1; j < len(datasets); j++ {
				out = append(out, pair{left: datasets[i].name, right: datasets[j].name})
			}
		}
		return out, nil
	}
	var out []pair
	for _, item := range strings.Split(list, ",") {
		left, right, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok || left == right {
			return nil, fmt.Errorf("invalid pair %q: want LEFT:RIGHT with two different datasets", item)
		}
		for _, name := range []string{left, right} {
			if !known[name] {
				return nil, fmt.Errorf("pair %q names unknown dataset %q", item, name)
			}
		}
		out = append(out, pair{left: left, right: right})
	}
	return out, nil
}

func run(ctx context.Context, datasets []dataset, pairs []pair, v *validation.Validator, logger *slog.Logger, out io.Writer) int {
	fmt.Fprintln(out, "=== SEP Catalog Comparison ===")
	fmt.Fprintln(out)

	load := &phase{name: "Load catalogs"}
	tables := make(map[string]*domain.Table, len(datasets))
	for _, ds := range datasets {
		t, err := catalogcsv.NewReader(ds.path, logger).Extract(ctx)
		if err != nil {
			load.errorf("%s: %v", ds.name, err)
			continue
		}
		tables[ds.name] = t
		fmt.Fprintf(out, "Loaded %s: %d rows, %d columns (%s)\n", ds.name, t.Len(), t.Width(), ds.path)
	}
	phases := []*phase{load}

	if load.passed() {
		for _, p := range pairs {
			phases = append(phases, comparePair(tables, p, v, out))
		}
	}

	// ── Report results ──
	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll catalogs match.")
		return 0
	}
	fmt.Fprintln(out, "\nComparison FAILED.")
	return 1
}

func comparePair(tables map[string]*domain.Table, p pair, v *validation.Validator, out io.Writer) *phase {
	ph := &phase{name: fmt.Sprintf("Compare %s vs %s", p.left, p.right)}
	a, b := tables[p.left], tables[p.right]

	fmt.Fprintf(out, "\nTesting if the dataset %s format matches the dataset %s...\n", p.left, p.right)
	if err := validation.CheckShape(a, p.left, b, p.right); err != nil {
		ph.errorf("%v", err)
		return ph
	}
	fmt.Fprintf(out, "\tThe columns of the datasets %s and %s match (same names, same order)\n", p.left, p.right)

	result, err := v.CompareCatalogs(a, p.left, b, p.right)
	report.PrintComparison(out, result)
	if err != nil {
		if errors.Is(err, validation.ErrValueMismatch) && v.Mode() == validation.ModeAudit {
			for _, d := range result.Differing() {
				ph.errorf("column %q: %d differences over %d values", d.Column, d.Count, d.Compared)
			}
		} else {
			ph.errorf("%v", err)
		}
	}
	return ph
}
