package validation

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
)

// Mismatch is one (row, event type) whose stored delay disagrees with the
// recomputed one. Origin and Target are the formatted source timestamps, ""
// when null.
type Mismatch struct {
	Index           int
	PeriodStart     string
	EventType       domain.EventType
	Family          domain.DelayFamily
	Origin          string
	Target          string
	Expected        float64
	ExpectedDefined bool
	Stored          float64
	StoredDefined   bool
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s (index=%d) %s %s: calculated %s, stored %s (origin %s, target %s)",
		m.PeriodStart, m.Index, m.Family, m.EventType,
		FormatDelay(m.Expected, m.ExpectedDefined), FormatDelay(m.Stored, m.StoredDefined),
		OrNull(m.Origin), OrNull(m.Target))
}

// FormatDelay renders a delay in minutes, or "null" when it is undefined.
func FormatDelay(v float64, ok bool) string {
	if !ok {
		return "null"
	}
	return strconv.FormatFloat(v, 'g', -1, 64) + " min"
}

// OrNull returns s, or "null" when s is empty.
func OrNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}

// EqualityReport summarizes one delay family check.
type EqualityReport struct {
	Family domain.DelayFamily
	// Checked counts the (row, event type) pairs inspected.
	Checked int
	// NonNull counts the defined delays that matched their recomputation.
	NonNull    int
	Mismatches []Mismatch
}

// CheckDelays recomputes family f from raw timestamps for every row and event
// type and compares it with the stored delay column. A stored value must be
// close to the recomputation when every source (and gate) is defined, and
// null otherwise.
//
// In strict mode the first mismatch is returned as an error wrapping
// ErrDelayMismatch. In audit mode every mismatch is collected and a single
// error is returned after the scan.
func (v *Validator) CheckDelays(t *domain.Table, f domain.DelayFamily) (EqualityReport, error) {
	report := EqualityReport{Family: f}

	type columns struct {
		stored, target, origin, gate *domain.Column
	}
	cols := make([]columns, 0, len(domain.EventTypes()))
	for _, e := range domain.EventTypes() {
		src := f.Sources(e)
		var c columns
		var err error
		if c.stored, err = t.Lookup(f.Field(e), domain.KindNumber); err != nil {
			return report, fmt.Errorf("check %s: %w", f, err)
		}
		if c.target, err = t.Lookup(src.Target, domain.KindTime); err != nil {
			return report, fmt.Errorf("check %s: %w", f, err)
		}
		if c.origin, err = t.Lookup(src.Origin, domain.KindTime); err != nil {
			return report, fmt.Errorf("check %s: %w", f, err)
		}
		if src.Gate != nil {
			g, ok := t.Column(src.Gate.Column())
			if !ok {
				return report, fmt.Errorf("check %s: %w: %q", f, domain.ErrMissingColumn, src.Gate.Column())
			}
			c.gate = g
		}
		cols = append(cols, c)
	}

	for i := 0; i < t.Len(); i++ {
		v.logger.Debug("testing row", "family", f.Slug(), "row", t.Index(i), "period_start", t.RowLabel(i))

		for k, e := range domain.EventTypes() {
			c := cols[k]
			report.Checked++

			to, okTarget := c.target.Time(i)
			from, okOrigin := c.origin.Time(i)
			expectedDefined := okTarget && okOrigin && (c.gate == nil || !c.gate.IsNull(i))
			var expected float64
			if expectedDefined {
				v.logger.Debug("testing event type", "family", f.Slug(), "row", t.Index(i), "event_type", e.String())
				expected = domain.DelayMinutes(to, from)
			}
			stored, storedDefined := c.stored.Number(i)

			switch {
			case expectedDefined && storedDefined && v.tol.Close(expected, stored):
				report.NonNull++
				continue
			case !expectedDefined && !storedDefined:
				continue
			}

			m := Mismatch{
				Index:           t.Index(i),
				PeriodStart:     t.RowLabel(i),
				EventType:       e,
				Family:          f,
				Origin:          c.origin.Format(i),
				Target:          c.target.Format(i),
				Expected:        expected,
				ExpectedDefined: expectedDefined,
				Stored:          stored,
				StoredDefined:   storedDefined,
			}
			if v.mode == ModeStrict {
				return report, fmt.Errorf("%w: %s", ErrDelayMismatch, m)
			}
			v.logger.Warn("delay mismatch",
				"family", f.Slug(),
				"row", m.Index,
				"period_start", m.PeriodStart,
				"event_type", e.String(),
				"calculated", FormatDelay(m.Expected, m.ExpectedDefined),
				"stored", FormatDelay(m.Stored, m.StoredDefined),
			)
			report.Mismatches = append(report.Mismatches, m)
		}
	}

	v.logger.Info("delay check complete",
		"family", f.Slug(),
		"non_null", report.NonNull,
		"mismatches", len(report.Mismatches),
	)
	if len(report.Mismatches) > 0 {
		return report, fmt.Errorf("%w: %d %s values differ from recomputation", ErrDelayMismatch, len(report.Mismatches), f)
	}
	return report, nil
}

// CheckAllDelays runs CheckDelays for the given families, or all of them when
// none are given. Strict mode stops at the first failing family.
func (v *Validator) CheckAllDelays(t *domain.Table, families ...domain.DelayFamily) ([]EqualityReport, error) {
	if len(families) == 0 {
		families = domain.DelayFamilies()
	}
	reports := make([]EqualityReport, 0, len(families))
	var errs []error
	for _, f := range families {
		r, err := v.CheckDelays(t, f)
		reports = append(reports, r)
		if err != nil {
			if v.mode == ModeStrict {
				return reports, err
			}
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}
