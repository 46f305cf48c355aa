// Package catalogcsv loads the SEP event catalog from a CSV file.
package catalogcsv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/klauspost/pgzip"
)

// ErrEmptyCatalog is returned for a file without a header row.
var ErrEmptyCatalog = errors.New("empty catalog")

// nullTokens are the cell values read as null, matching the default NA
// values of the catalog's producers.
var nullTokens = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsNull reports whether a raw cell is read as null.
func IsNull(cell string) bool {
	return nullTokens[cell]
}

// ctxCheckInterval is how many rows are read between context checks.
const ctxCheckInterval = 1024

// Reader loads a catalog file. It implements pipeline.Extractor.
type Reader struct {
	path   string
	logger *slog.Logger
}

// NewReader creates a reader for the catalog at path. Paths ending in .gz
// are decompressed transparently.
func NewReader(path string, logger *slog.Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// Path returns the catalog file path.
func (r *Reader) Path() string { return r.path }

// Extract reads the whole catalog as text columns. Type conversion is left to
// the normalizer.
func (r *Reader) Extract(ctx context.Context) (*domain.Table, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	var in io.Reader = f
	if strings.HasSuffix(r.path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open catalog %s: %w", r.path, err)
		}
		defer zr.Close()
		in = zr
	}

	t, err := Parse(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", r.path, err)
	}
	r.logger.Info("catalog loaded", "path", r.path, "rows", t.Len(), "columns", t.Width())
	return t, nil
}

// Parse reads CSV with a header row into a table of text columns.
func Parse(ctx context.Context, in io.Reader) (*domain.Table, error) {
	cr := csv.NewReader(in)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyCatalog
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	values := make([][]string, len(header))
	valid := make([][]bool, len(header))
	for rows := 0; ; rows++ {
		if rows%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for j, cell := range rec {
			null := IsNull(cell)
			if null {
				cell = ""
			}
			values[j] = append(values[j], cell)
			valid[j] = append(valid[j], !null)
		}
	}

	cols := make([]*domain.Column, len(header))
	for j, name := range header {
		if values[j] == nil {
			values[j], valid[j] = []string{}, []bool{}
		}
		c, err := domain.NewTextColumn(name, values[j], valid[j])
		if err != nil {
			return nil, err
		}
		cols[j] = c
	}
	return domain.NewTable(cols...)
}
