// Package fluxseries reads the per-event flux time-series files referenced by
// the catalog's "Flux Time Series" columns.
package fluxseries

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/klauspost/pgzip"
)

const pointLayout = "2006-01-02T15:04:05"

// Point is one flux sample in pfu.
type Point struct {
	Time time.Time
	Flux float64
}

// Series is a flux time series in file order.
type Series struct {
	Name   string
	Points []Point
}

// Parse reads whitespace-delimited "timestamp flux" lines. A timestamp may
// itself contain one space between date and time. Blank lines, lines
// starting with '#' or '"', and samples whose flux is NaN or infinite are
// skipped.
func Parse(r io.Reader, name string) (*Series, error) {
	s := &Series{Name: name}
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") || strings.HasPrefix(text, `"`) {
			continue
		}
		p, err := parseLine(strings.Fields(text))
		if errors.Is(err, domain.ErrNotFinite) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", name, line, err)
		}
		s.Points = append(s.Points, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return s, nil
}

func parseLine(fields []string) (Point, error) {
	var stamp, flux string
	switch len(fields) {
	case 2:
		stamp, flux = fields[0], fields[1]
	case 3:
		stamp, flux = fields[0]+" "+fields[1], fields[2]
	default:
		return Point{}, fmt.Errorf("expected 2 columns, got %d", len(fields))
	}
	t, err := domain.ParseTimestamp(stamp)
	if err != nil {
		return Point{}, err
	}
	v, err := domain.ParseNumber(flux)
	if err != nil {
		return Point{}, err
	}
	return Point{Time: t, Flux: v}, nil
}

// Write renders s in the format Parse reads, one "timestamp flux" line per point.
func Write(w io.Writer, s *Series) error {
	bw := bufio.NewWriter(w)
	for _, p := range s.Points {
		if _, err := fmt.Fprintf(bw, "%s %s\n", p.Time.UTC().Format(pointLayout), strconv.FormatFloat(p.Flux, 'g', 6, 64)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadFile parses a series from disk. Files ending in .gz are decompressed.
func ReadFile(path string) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open flux series: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open flux series %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	return Parse(r, filepath.Base(path))
}

// Peak returns the sample with the highest flux. The earliest wins a tie.
func (s *Series) Peak() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	best := s.Points[0]
	for _, p := range s.Points[1:] {
		if p.Flux > best.Flux {
			best = p
		}
	}
	return best, true
}

// Span returns the first and last sample times.
func (s *Series) Span() (time.Time, time.Time, bool) {
	if len(s.Points) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.Points[0].Time, s.Points[len(s.Points)-1].Time, true
}

// Nearest returns the sample closest in time to t.
func (s *Series) Nearest(t time.Time) (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	best := s.Points[0]
	bestGap := absDuration(best.Time.Sub(t))
	for _, p := range s.Points[1:] {
		if gap := absDuration(p.Time.Sub(t)); gap < bestGap {
			best, bestGap = p, gap
		}
	}
	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Loader loads a series by the file name stored in the catalog.
type Loader interface {
	Load(ctx context.Context, name string) (*Series, error)
}

// DirLoader resolves names against a directory.
type DirLoader struct {
	dir string
}

// NewDirLoader creates a Loader reading files below dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{dir: dir}
}

func (l *DirLoader) Load(ctx context.Context, name string) (*Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := name
	if !filepath.IsAbs(name) {
		path = filepath.Join(l.dir, name)
	}
	return ReadFile(path)
}
