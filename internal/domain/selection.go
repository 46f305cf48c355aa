package domain

import "fmt"

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// Criteria selects a subset of events. Nil fields do not filter. Set fields
// combine with logical AND.
type Criteria struct {
	// EventType keeps rows where an SEP event of this type was detected.
	EventType *EventType
	// Longitude keeps rows whose longitude lies in the range, bounds included.
	Longitude *Range
	// MinFlareMagnitude keeps rows with a flare magnitude at or above the value.
	MinFlareMagnitude *float64
	// MinCDAWSpeed keeps rows with a CDAW CME speed at or above the value.
	MinCDAWSpeed *float64
	// MinDONKISpeed keeps rows with a DONKI CME speed at or above the value.
	MinDONKISpeed *float64
}

// Empty reports whether no criterion is set.
func (c Criteria) Empty() bool {
	return c.EventType == nil && c.Longitude == nil && c.MinFlareMagnitude == nil &&
		c.MinCDAWSpeed == nil && c.MinDONKISpeed == nil
}

// Select returns the rows matching every set criterion in their original
// order. Null values never satisfy a numeric criterion. With no criteria the
// input table is returned as is.
func Select(t *Table, c Criteria) (*Table, error) {
	if c.Empty() {
		return t, nil
	}

	mask := make([]bool, t.Len())
	for i := range mask {
		mask[i] = true
	}

	if c.EventType != nil {
		f, err := NewField(*c.EventType, SuffixSEPStartTime)
		if err != nil {
			return nil, err
		}
		col, ok := t.Column(f.Column())
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, f.Column())
		}
		for i := range mask {
			mask[i] = mask[i] && !col.IsNull(i)
		}
	}

	if c.Longitude != nil {
		r := *c.Longitude
		if err := applyNumeric(t, ColLongitude, mask, r.Contains); err != nil {
			return nil, err
		}
	}

	thresholds := []struct {
		column string
		min    *float64
	}{
		{ColFlareMagnitude, c.MinFlareMagnitude},
		{ColCDAWSpeed, c.MinCDAWSpeed},
		{ColDONKISpeed, c.MinDONKISpeed},
	}
	for _, th := range thresholds {
		if th.min == nil {
			continue
		}
		limit := *th.min
		if err := applyNumeric(t, th.column, mask, func(v float64) bool { return v >= limit }); err != nil {
			return nil, err
		}
	}

	return t.Filter(mask), nil
}

// applyNumeric clears mask entries whose value is null or fails keep.
func applyNumeric(t *Table, column string, mask []bool, keep func(float64) bool) error {
	col, err := t.Lookup(GlobalField(column), KindNumber)
	if err != nil {
		return err
	}
	for i := range mask {
		v, ok := col.Number(i)
		mask[i] = mask[i] && ok && keep(v)
	}
	return nil
}
