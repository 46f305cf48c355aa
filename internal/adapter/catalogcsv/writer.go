package catalogcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/klauspost/pgzip"
)

// Write renders a table as CSV with a header row. Null cells are written
// empty, so the output reads back with the same nulls.
func Write(w io.Writer, t *domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}
	cols := t.Columns()
	rec := make([]string, len(cols))
	for i := 0; i < t.Len(); i++ {
		for j, c := range cols {
			rec[j] = c.Format(i)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes a table to path, gzip-compressed when path ends in .gz.
func WriteFile(path string, t *domain.Table) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create catalog: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close catalog: %w", cerr)
		}
	}()

	if !strings.HasSuffix(path, ".gz") {
		return Write(f, t)
	}
	zw := pgzip.NewWriter(f)
	if err := Write(zw, t); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
