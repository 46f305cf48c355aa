// Package snapshot caches the normalized and derived catalog tables on disk
// so later runs can skip normalization and delay computation.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/zstd"
)

// Version is the snapshot format written by this package. Files with another
// version are rejected and regenerated.
const Version = 1

var (
	// ErrNotFound is returned when no snapshot exists at the store path.
	// It matches fs.ErrNotExist.
	ErrNotFound = fmt.Errorf("snapshot %w", fs.ErrNotExist)

	// ErrVersion is returned for a snapshot written in another format.
	ErrVersion = errors.New("unsupported snapshot version")
)

type document struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Source    tableDoc  `json:"source"`
	Derived   tableDoc  `json:"derived"`
}

type tableDoc struct {
	Index   []int       `json:"index"`
	Columns []columnDoc `json:"columns"`
}

type columnDoc struct {
	Name    string      `json:"name"`
	Kind    string      `json:"kind"`
	Valid   []bool      `json:"valid"`
	Text    []string    `json:"text,omitempty"`
	Numbers []float64   `json:"numbers,omitempty"`
	Times   []time.Time `json:"times,omitempty"`
}

// Store reads and writes one zstd-compressed JSON snapshot file.
// It implements pipeline.SnapshotStore.
type Store struct {
	path  string
	clock clockwork.Clock
}

// NewStore creates a store at path. A nil clock uses the real time.
func NewStore(path string, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{path: path, clock: clock}
}

// Path returns the snapshot file path.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot. It returns ErrNotFound when the file is absent.
func (s *Store) Load(ctx context.Context) (source, derived *domain.Table, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer zr.Close()

	var doc document
	if err := json.NewDecoder(zr).Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	if doc.Version != Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrVersion, doc.Version)
	}

	if source, err = doc.Source.table(); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot source table: %w", err)
	}
	if derived, err = doc.Derived.table(); err != nil {
		return nil, nil, fmt.Errorf("decode snapshot derived table: %w", err)
	}
	return source, derived, nil
}

// Save replaces the snapshot atomically.
func (s *Store) Save(ctx context.Context, source, derived *domain.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := document{
		Version:   Version,
		CreatedAt: s.clock.Now().UTC(),
		Source:    newTableDoc(source),
		Derived:   newTableDoc(derived),
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if err := encode(tmp, doc); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func encode(f *os.File, doc document) error {
	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(zw).Encode(doc); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func newTableDoc(t *domain.Table) tableDoc {
	doc := tableDoc{Index: make([]int, t.Len())}
	for i := range doc.Index {
		doc.Index[i] = t.Index(i)
	}
	for _, c := range t.Columns() {
		cd := columnDoc{Name: c.Name(), Kind: c.Kind().String(), Valid: make([]bool, c.Len())}
		switch c.Kind() {
		case domain.KindText:
			cd.Text = make([]string, c.Len())
		case domain.KindNumber:
			cd.Numbers = make([]float64, c.Len())
		case domain.KindTime:
			cd.Times = make([]time.Time, c.Len())
		}
		for i := range cd.Valid {
			switch c.Kind() {
			case domain.KindText:
				cd.Text[i], cd.Valid[i] = c.Text(i)
			case domain.KindNumber:
				cd.Numbers[i], cd.Valid[i] = c.Number(i)
			case domain.KindTime:
				cd.Times[i], cd.Valid[i] = c.Time(i)
			}
		}
		doc.Columns = append(doc.Columns, cd)
	}
	return doc
}

func (d tableDoc) table() (*domain.Table, error) {
	cols := make([]*domain.Column, 0, len(d.Columns))
	for _, cd := range d.Columns {
		var (
			c   *domain.Column
			err error
		)
		switch cd.Kind {
		case domain.KindText.String():
			c, err = domain.NewTextColumn(cd.Name, orEmpty(cd.Text, len(cd.Valid)), cd.Valid)
		case domain.KindNumber.String():
			c, err = domain.NewNumberColumn(cd.Name, orEmpty(cd.Numbers, len(cd.Valid)), cd.Valid)
		case domain.KindTime.String():
			c, err = domain.NewTimeColumn(cd.Name, orEmpty(cd.Times, len(cd.Valid)), cd.Valid)
		default:
			err = fmt.Errorf("column %q: unknown kind %q", cd.Name, cd.Kind)
		}
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	index := d.Index
	if index == nil {
		index = []int{}
	}
	return domain.NewIndexedTable(index, cols...)
}

// orEmpty restores value slices dropped by omitempty for empty or all-null columns.
func orEmpty[T any](values []T, n int) []T {
	if values == nil {
		return make([]T, n)
	}
	return values
}
