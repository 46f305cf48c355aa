package validation

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
)

// LongitudeRange is the valid domain of event longitudes.
var LongitudeRange = domain.Range{Min: -180, Max: 180}

// Violation is a negative delay.
type Violation struct {
	Index       int
	PeriodStart string
	EventType   domain.EventType
	Family      domain.DelayFamily
	Value       float64
}

// SignReport holds the result of a sign scan, keyed by delay family.
type SignReport struct {
	NonNull    map[domain.DelayFamily]int
	Violations map[domain.DelayFamily][]Violation
}

// Total returns the number of violations across all families.
func (r SignReport) Total() int {
	n := 0
	for _, v := range r.Violations {
		n += len(v)
	}
	return n
}

// CheckSigns asserts that every defined delay of every family is >= 0. The
// whole table is scanned in every mode, and a single error wrapping
// ErrNegativeDelay is returned afterwards if anything was found.
func (v *Validator) CheckSigns(t *domain.Table) (SignReport, error) {
	report := SignReport{
		NonNull:    make(map[domain.DelayFamily]int),
		Violations: make(map[domain.DelayFamily][]Violation),
	}

	var summary []string
	for _, f := range domain.DelayFamilies() {
		for _, e := range domain.EventTypes() {
			col, err := t.Lookup(f.Field(e), domain.KindNumber)
			if err != nil {
				return report, fmt.Errorf("check signs: %w", err)
			}
			for i := 0; i < t.Len(); i++ {
				val, ok := col.Number(i)
				if !ok {
					continue
				}
				v.logger.Debug("testing delay sign", "family", f.Slug(), "row", t.Index(i), "event_type", e.String())
				report.NonNull[f]++
				if val >= 0 {
					continue
				}
				report.Violations[f] = append(report.Violations[f], Violation{
					Index:       t.Index(i),
					PeriodStart: t.RowLabel(i),
					EventType:   e,
					Family:      f,
					Value:       val,
				})
			}
		}

		n := len(report.Violations[f])
		v.logger.Info("sign check complete", "family", f.Slug(), "non_null", report.NonNull[f], "negative", n)
		if n > 0 {
			summary = append(summary, fmt.Sprintf("%s: %d", f, n))
		}
	}

	if total := report.Total(); total > 0 {
		return report, fmt.Errorf("%w: %d negative values (%s)", ErrNegativeDelay, total, strings.Join(summary, ", "))
	}
	return report, nil
}

// LongitudeViolation is a longitude outside LongitudeRange.
type LongitudeViolation struct {
	Index       int
	PeriodStart string
	Longitude   float64
}

// DomainReport holds the result of a longitude scan.
type DomainReport struct {
	NonNull    int
	Violations []LongitudeViolation
}

// CheckLongitude asserts that every defined longitude lies in [-180, 180].
// Null longitudes are not violations. Like CheckSigns it always scans the
// whole table before failing.
func (v *Validator) CheckLongitude(t *domain.Table) (DomainReport, error) {
	var report DomainReport
	col, err := t.Lookup(domain.GlobalField(domain.ColLongitude), domain.KindNumber)
	if err != nil {
		return report, fmt.Errorf("check longitude: %w", err)
	}

	for i := 0; i < t.Len(); i++ {
		lon, ok := col.Number(i)
		if !ok {
			continue
		}
		v.logger.Debug("testing longitude", "row", t.Index(i))
		report.NonNull++
		if LongitudeRange.Contains(lon) {
			continue
		}
		report.Violations = append(report.Violations, LongitudeViolation{
			Index:       t.Index(i),
			PeriodStart: t.RowLabel(i),
			Longitude:   lon,
		})
		v.logger.Warn("longitude out of range", "row", t.Index(i), "longitude", lon, "range", LongitudeRange.String())
	}

	v.logger.Info("longitude check complete", "non_null", report.NonNull, "out_of_range", len(report.Violations))
	if n := len(report.Violations); n > 0 {
		return report, fmt.Errorf("%w: %d longitudes outside %s", ErrLongitudeRange, n, LongitudeRange)
	}
	return report, nil
}
