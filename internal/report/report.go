// Package report writes the human-readable validation reports. Every file is
// rewritten on each run, including when it has nothing to report.
package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/couchcryptid/sep-event-etl/internal/validation"
	"github.com/jonboulle/clockwork"
)

// Writer writes report files into one directory.
type Writer struct {
	dir   string
	clock clockwork.Clock
}

// NewWriter creates a Writer. A nil clock uses the real clock.
func NewWriter(dir string, clock clockwork.Clock) *Writer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Writer{dir: dir, clock: clock}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// SignViolationsFile is the report name for the negative delays of f.
func SignViolationsFile(f domain.DelayFamily) string {
	return f.Slug() + "_negative_delays.txt"
}

// MismatchesFile is the report name for the delay mismatches of f.
// A non-empty prefix tells reports of different inputs apart.
func MismatchesFile(prefix string, f domain.DelayFamily) string {
	return prefix + f.Slug() + "_mismatches.txt"
}

// LongitudeFile is the report name for out-of-range longitudes.
const LongitudeFile = "longitude_out_of_range.txt"

// WriteSignViolations writes one file per delay family and returns their paths.
func (w *Writer) WriteSignViolations(r validation.SignReport) ([]string, error) {
	paths := make([]string, 0, len(domain.DelayFamilies()))
	for _, f := range domain.DelayFamilies() {
		violations := r.Violations[f]

		var buf bytes.Buffer
		w.header(&buf, fmt.Sprintf("%s: negative delays", f))
		fmt.Fprintf(&buf, "# %d negative values over %d non-null values\n\n", len(violations), r.NonNull[f])
		for _, v := range violations {
			fmt.Fprintf(&buf, "%s (index=%d) %s: %s min\n",
				v.PeriodStart, v.Index, v.EventType, strconv.FormatFloat(v.Value, 'g', -1, 64))
		}

		path, err := w.write(SignViolationsFile(f), buf.Bytes())
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteMismatches writes the mismatch report of one equality check.
func (w *Writer) WriteMismatches(prefix string, r validation.EqualityReport) (string, error) {
	var buf bytes.Buffer
	w.header(&buf, fmt.Sprintf("%s: recomputation mismatches", r.Family))
	fmt.Fprintf(&buf, "# %d mismatches, %d matching non-null values, %d pairs checked\n\n",
		len(r.Mismatches), r.NonNull, r.Checked)
	for _, m := range r.Mismatches {
		fmt.Fprintf(&buf, "%s (index=%d) : %s test failed for event type %s\n", m.PeriodStart, m.Index, r.Family, m.EventType)
		fmt.Fprintf(&buf, "\tCalculated: %s , Stored: %s\n", validation.FormatDelay(m.Expected, m.ExpectedDefined), validation.FormatDelay(m.Stored, m.StoredDefined))
		fmt.Fprintf(&buf, "\tOrigin : %s\n", validation.OrNull(m.Origin))
		fmt.Fprintf(&buf, "\tTarget : %s\n\n", validation.OrNull(m.Target))
	}
	return w.write(MismatchesFile(prefix, r.Family), buf.Bytes())
}

// WriteLongitude writes the out-of-range longitude report.
func (w *Writer) WriteLongitude(r validation.DomainReport) (string, error) {
	var buf bytes.Buffer
	w.header(&buf, "longitudes outside "+validation.LongitudeRange.String())
	fmt.Fprintf(&buf, "# %d out of range over %d non-null values\n\n", len(r.Violations), r.NonNull)
	for _, v := range r.Violations {
		fmt.Fprintf(&buf, "%s (index=%d): longitude %s\n",
			v.PeriodStart, v.Index, strconv.FormatFloat(v.Longitude, 'g', -1, 64))
	}
	return w.write(LongitudeFile, buf.Bytes())
}

func (w *Writer) header(buf *bytes.Buffer, title string) {
	fmt.Fprintf(buf, "# %s\n# generated %s\n", title, w.clock.Now().UTC().Format(domain.TimeLayout))
}

func (w *Writer) write(name string, data []byte) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report %s: %w", name, err)
	}
	return path, nil
}

// PrintComparison prints a catalog comparison the way the comparison tool reports it.
func PrintComparison(out io.Writer, c validation.Comparison) {
	fmt.Fprintf(out, "Testing if the dataset %s is the same as the dataset %s...\n", c.Left, c.Right)
	for _, col := range c.Differing() {
		fmt.Fprintf(out, "\nThe columns %q don't match...\n\n", col.Column)
		for _, d := range col.Differences {
			fmt.Fprintf(out, "\t%s (line=%d):\n", d.PeriodStart, d.Index)
			fmt.Fprintf(out, "\t\tThe value for the dataset %s is %s while the value for the dataset %s is %s\n",
				c.Left, validation.OrNull(d.Left), c.Right, validation.OrNull(d.Right))
		}
		fmt.Fprintf(out, "\t%d differences found in the column %q over %d non-simultaneously null values\n",
			col.Count, col.Column, col.Compared)
	}
	if c.Equal() {
		fmt.Fprintf(out, "\nThe datasets %s and %s are the same!\n", c.Left, c.Right)
		return
	}
	fmt.Fprintf(out, "\nThe datasets %s and %s are not the same.\n", c.Left, c.Right)
}
