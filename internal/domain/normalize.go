package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// Change records a cell whose text could not be converted and became null.
type Change struct {
	Index       int    `json:"index"`
	PeriodStart string `json:"period_start"`
	Column      string `json:"column"`
	Original    string `json:"original"`
}

// timeLayouts are tried in order. Fractional seconds are accepted after the
// seconds field even when the layout does not name them.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
}

// ErrNotFinite is returned by ParseNumber for NaN and infinite values.
var ErrNotFinite = errors.New("not finite")

// Timestamps must fall within the range of int64 nanoseconds since the epoch,
// roughly 1677-09-21 to 2262-04-11.
var (
	MinTimestamp = time.Unix(0, math.MinInt64).UTC()
	MaxTimestamp = time.Unix(0, math.MaxInt64).UTC()
)

// ParseTimestamp parses a catalog timestamp. Values without a zone are UTC.
// Instants outside [MinTimestamp, MaxTimestamp] are rejected.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Before(MinTimestamp) || t.After(MaxTimestamp) {
			return time.Time{}, fmt.Errorf("parse timestamp %q: out of range", s)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unrecognized layout", s)
}

// ParseNumber parses a decimal catalog number. Hexadecimal and non-finite
// values are rejected.
func ParseNumber(s string) (float64, error) {
	text := strings.TrimSpace(s)
	digits := strings.TrimLeft(text, "+-")
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		return 0, fmt.Errorf("parse number %q: not decimal", s)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("parse number %q: %w", s, ErrNotFinite)
	}
	return v, nil
}

// ToNumeric converts a text column to numbers. Unparseable cells become null
// and are reported; conversion never fails on cell content. A column that is
// already numeric is returned unchanged.
func ToNumeric(t *Table, name string, logger *slog.Logger) (*Table, []Change, error) {
	src, err := convertible(t, name, KindNumber)
	if err != nil || src == nil {
		return t, nil, err
	}

	values := make([]float64, src.Len())
	valid := make([]bool, src.Len())
	var changes []Change
	for i := range values {
		raw, ok := src.Text(i)
		if !ok {
			continue
		}
		v, perr := ParseNumber(raw)
		if perr != nil {
			changes = append(changes, recordChange(t, i, name, raw, logger))
			continue
		}
		values[i], valid[i] = v, true
	}

	col, err := NewNumberColumn(name, values, valid)
	if err != nil {
		return nil, nil, err
	}
	out, err := t.With(col)
	return out, changes, err
}

// ToDatetime converts a text column to timestamps with the same contract as ToNumeric.
func ToDatetime(t *Table, name string, logger *slog.Logger) (*Table, []Change, error) {
	src, err := convertible(t, name, KindTime)
	if err != nil || src == nil {
		return t, nil, err
	}

	values := make([]time.Time, src.Len())
	valid := make([]bool, src.Len())
	var changes []Change
	for i := range values {
		raw, ok := src.Text(i)
		if !ok {
			continue
		}
		v, perr := ParseTimestamp(raw)
		if perr != nil {
			changes = append(changes, recordChange(t, i, name, raw, logger))
			continue
		}
		values[i], valid[i] = v, true
	}

	col, err := NewTimeColumn(name, values, valid)
	if err != nil {
		return nil, nil, err
	}
	out, err := t.With(col)
	return out, changes, err
}

// convertible returns the text column to convert, or nil when it already has the target kind.
func convertible(t *Table, name string, target Kind) (*Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	switch c.Kind() {
	case target:
		return nil, nil
	case KindText:
		return c, nil
	default:
		return nil, fmt.Errorf("%w: cannot convert %s column %q to %s", ErrColumnKind, c.Kind(), name, target)
	}
}

func recordChange(t *Table, i int, name, raw string, logger *slog.Logger) Change {
	ch := Change{Index: t.Index(i), PeriodStart: t.RowLabel(i), Column: name, Original: raw}
	logger.Info("converted value to null",
		"period_start", ch.PeriodStart,
		"row", ch.Index,
		"column", name,
		"original", raw,
	)
	return ch
}

// NormalizeReport summarizes a catalog normalization.
type NormalizeReport struct {
	Columns int
	Changes []Change
}

// normalizeTimeFields lists the columns converted to timestamps.
func normalizeTimeFields() []Field {
	fields := []Field{
		GlobalField(ColPeriodStart),
		GlobalField(ColFlarePeakTime),
		GlobalField(ColCMEFirstLook),
	}
	for _, e := range EventTypes() {
		fields = append(fields,
			MustField(e, SuffixSEPStartTime),
			MustField(e, SuffixOnsetPeakTime),
			MustField(e, SuffixMaxFluxTime),
		)
	}
	return fields
}

// normalizeNumberFields lists the columns converted to numbers.
func normalizeNumberFields() []Field {
	return []Field{
		GlobalField(ColFlareMagnitude),
		GlobalField(ColCDAWSpeed),
		GlobalField(ColDONKISpeed),
		GlobalField(ColLongitude),
	}
}

// NormalizeCatalog converts every column the derivation and selection steps
// read. Source-supplied delay columns are converted when present so they can
// be audited against recomputed values.
func NormalizeCatalog(t *Table, logger *slog.Logger) (*Table, NormalizeReport, error) {
	timeFields := normalizeTimeFields()
	numberFields := normalizeNumberFields()
	if err := t.Require(append(timeFields, numberFields...)...); err != nil {
		return nil, NormalizeReport{}, err
	}
	for _, f := range DelayFamilies() {
		for _, e := range EventTypes() {
			if fd := f.Field(e); t.Has(fd.Column()) {
				numberFields = append(numberFields, fd)
			}
		}
	}

	var report NormalizeReport
	out := t
	for _, f := range timeFields {
		next, changes, err := ToDatetime(out, f.Column(), logger)
		if err != nil {
			return nil, report, err
		}
		out = next
		report.Columns++
		report.Changes = append(report.Changes, changes...)
	}
	for _, f := range numberFields {
		next, changes, err := ToNumeric(out, f.Column(), logger)
		if err != nil {
			return nil, report, err
		}
		out = next
		report.Columns++
		report.Changes = append(report.Changes, changes...)
	}
	return out, report, nil
}
