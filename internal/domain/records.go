package domain

import (
	"fmt"
	"strconv"
	"time"
)

// DelayRecord is the long-format view of one detected SEP event: a catalog
// row paired with one event type whose SEP start time is defined. Nil
// pointers carry null catalog values.
type DelayRecord struct {
	Index          int64    `json:"index" parquet:"index"`
	PeriodStart    string   `json:"period_start" parquet:"period_start"`
	EventType      string   `json:"event_type" parquet:"event_type"`
	SEPStart       string   `json:"sep_start" parquet:"sep_start"`
	FlareMagnitude *float64 `json:"flare_magnitude,omitempty" parquet:"flare_magnitude,optional"`
	CDAWSpeed      *float64 `json:"cdaw_speed,omitempty" parquet:"cdaw_speed,optional"`
	DONKISpeed     *float64 `json:"donki_speed,omitempty" parquet:"donki_speed,optional"`
	Longitude      *float64 `json:"longitude,omitempty" parquet:"longitude,optional"`

	FlareToPeak *float64 `json:"flare_to_peak_minutes,omitempty" parquet:"flare_to_peak_minutes,optional"`
	FlareToMax  *float64 `json:"flare_to_max_minutes,omitempty" parquet:"flare_to_max_minutes,optional"`
	CMEToPeak   *float64 `json:"cme_to_peak_minutes,omitempty" parquet:"cme_to_peak_minutes,optional"`
	CMEToMax    *float64 `json:"cme_to_max_minutes,omitempty" parquet:"cme_to_max_minutes,optional"`
	SEPToPeak   *float64 `json:"sep_to_peak_minutes,omitempty" parquet:"sep_to_peak_minutes,optional"`
	SEPToMax    *float64 `json:"sep_to_max_minutes,omitempty" parquet:"sep_to_max_minutes,optional"`
}

// Key identifies the record across exports: "<index>-<event type>".
func (r DelayRecord) Key() string {
	return strconv.FormatInt(r.Index, 10) + "-" + r.EventType
}

// Delay returns the value of family f, if defined.
func (r DelayRecord) Delay(f DelayFamily) *float64 {
	switch f {
	case FlareToPeak:
		return r.FlareToPeak
	case FlareToMax:
		return r.FlareToMax
	case CMEToPeak:
		return r.CMEToPeak
	case CMEToMax:
		return r.CMEToMax
	case SEPToPeak:
		return r.SEPToPeak
	case SEPToMax:
		return r.SEPToMax
	default:
		return nil
	}
}

// DelayRecords flattens a derived table into one record per detected event,
// ordered by row and then by event type.
// The table must be normalized and carry every delay column.
func DelayRecords(t *Table) ([]DelayRecord, error) {
	numbers := map[string]*Column{}
	for _, name := range []string{ColFlareMagnitude, ColCDAWSpeed, ColDONKISpeed, ColLongitude} {
		c, err := t.Lookup(GlobalField(name), KindNumber)
		if err != nil {
			return nil, fmt.Errorf("delay records: %w", err)
		}
		numbers[name] = c
	}

	type typeColumns struct {
		start  *Column
		delays map[DelayFamily]*Column
	}
	perType := make([]typeColumns, 0, len(EventTypes()))
	for _, e := range EventTypes() {
		start, err := t.Lookup(MustField(e, SuffixSEPStartTime), KindTime)
		if err != nil {
			return nil, fmt.Errorf("delay records: %w", err)
		}
		tc := typeColumns{start: start, delays: map[DelayFamily]*Column{}}
		for _, f := range DelayFamilies() {
			c, err := t.Lookup(f.Field(e), KindNumber)
			if err != nil {
				return nil, fmt.Errorf("delay records: %w", err)
			}
			tc.delays[f] = c
		}
		perType = append(perType, tc)
	}

	var records []DelayRecord
	for i := 0; i < t.Len(); i++ {
		for k, e := range EventTypes() {
			tc := perType[k]
			st, ok := tc.start.Time(i)
			if !ok {
				continue
			}
			records = append(records, DelayRecord{
				Index:          int64(t.Index(i)),
				PeriodStart:    t.RowLabel(i),
				EventType:      e.String(),
				SEPStart:       st.Format(time.RFC3339Nano),
				FlareMagnitude: numberPtr(numbers[ColFlareMagnitude], i),
				CDAWSpeed:      numberPtr(numbers[ColCDAWSpeed], i),
				DONKISpeed:     numberPtr(numbers[ColDONKISpeed], i),
				Longitude:      numberPtr(numbers[ColLongitude], i),
				FlareToPeak:    numberPtr(tc.delays[FlareToPeak], i),
				FlareToMax:     numberPtr(tc.delays[FlareToMax], i),
				CMEToPeak:      numberPtr(tc.delays[CMEToPeak], i),
				CMEToMax:       numberPtr(tc.delays[CMEToMax], i),
				SEPToPeak:      numberPtr(tc.delays[SEPToPeak], i),
				SEPToMax:       numberPtr(tc.delays[SEPToMax], i),
			})
		}
	}
	return records, nil
}

func numberPtr(c *Column, i int) *float64 {
	v, ok := c.Number(i)
	if !ok {
		return nil
	}
	return &v
}

// FluxSeriesFile returns the flux time-series file name recorded for row i and event type e.
func FluxSeriesFile(t *Table, i int, e EventType) (string, bool) {
	c, ok := t.Column(MustField(e, SuffixFluxTimeSeries).Column())
	if !ok {
		return "", false
	}
	name := c.Format(i)
	return name, name != ""
}

// RowByIndex finds the row holding original catalog index idx.
func RowByIndex(t *Table, idx int) (int, bool) {
	for i := 0; i < t.Len(); i++ {
		if t.Index(i) == idx {
			return i, true
		}
	}
	return 0, false
}
