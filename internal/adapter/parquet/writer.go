// Package parquet exports delay records to a Parquet file.
package parquet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	parquetgo "github.com/parquet-go/parquet-go"
)

// Writer replaces a Parquet file with the delay records of a run.
// It implements pipeline.RecordSink.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a writer for path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Name identifies the sink in metrics and logs.
func (w *Writer) Name() string { return "parquet" }

// WriteRecords writes every record in one file, replacing any previous export.
func (w *Writer) WriteRecords(ctx context.Context, records []domain.DelayRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create parquet dir: %w", err)
	}
	if err := parquetgo.WriteFile(w.path, records); err != nil {
		return fmt.Errorf("write parquet %s: %w", w.path, err)
	}
	w.logger.Info("delay records exported", "sink", w.Name(), "path", w.path, "records", len(records))
	return nil
}

// ReadRecords loads an exported file.
func ReadRecords(path string) ([]domain.DelayRecord, error) {
	records, err := parquetgo.ReadFile[domain.DelayRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return records, nil
}
