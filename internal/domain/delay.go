package domain

import (
	"fmt"
	"time"
)

// DelayFamily is one of the six precursor-to-marker delay definitions.
type DelayFamily int

const (
	FlareToPeak DelayFamily = iota
	FlareToMax
	CMEToPeak
	CMEToMax
	SEPToPeak
	SEPToMax
)

// delayDef describes a family as (target - origin) in minutes. The origin is
// either a global column or a per-type suffix. A non-empty gate names a
// per-type suffix that must also be defined for the delay to be defined.
type delayDef struct {
	name         string
	slug         string
	suffix       string
	target       string
	originGlobal string
	originSuffix string
	gate         string
}

var delayDefs = [...]delayDef{
	FlareToPeak: {
		name: "flare to peak", slug: "flare_to_peak", suffix: SuffixFlareTimeToOnset,
		target: SuffixOnsetPeakTime, originGlobal: ColFlarePeakTime,
	},
	// The SEP start gate keeps flare-to-max restricted to confirmed SEP events.
	// CME-to-max has no such gate; the asymmetry matches the published catalog.
	FlareToMax: {
		name: "flare to max", slug: "flare_to_max", suffix: SuffixFlareTimeToMax,
		target: SuffixMaxFluxTime, originGlobal: ColFlarePeakTime, gate: SuffixSEPStartTime,
	},
	CMEToPeak: {
		name: "CME to peak", slug: "cme_to_peak", suffix: SuffixCMETimeToOnset,
		target: SuffixOnsetPeakTime, originGlobal: ColCMEFirstLook,
	},
	CMEToMax: {
		name: "CME to max", slug: "cme_to_max", suffix: SuffixCMETimeToMax,
		target: SuffixMaxFluxTime, originGlobal: ColCMEFirstLook,
	},
	SEPToPeak: {
		name: "rise time to onset", slug: "sep_to_peak", suffix: SuffixRiseTimeToOnset,
		target: SuffixOnsetPeakTime, originSuffix: SuffixSEPStartTime,
	},
	SEPToMax: {
		name: "rise time to max", slug: "sep_to_max", suffix: SuffixRiseTimeToMax,
		target: SuffixMaxFluxTime, originSuffix: SuffixSEPStartTime,
	},
}

// DelayFamilies returns every family in report order.
func DelayFamilies() []DelayFamily {
	return []DelayFamily{FlareToPeak, CMEToPeak, SEPToPeak, FlareToMax, CMEToMax, SEPToMax}
}

// ParseDelayFamily accepts a family slug such as "flare_to_peak".
func ParseDelayFamily(s string) (DelayFamily, error) {
	for _, f := range DelayFamilies() {
		if delayDefs[f].slug == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown delay family %q", s)
}

// Valid reports whether f is a known family.
func (f DelayFamily) Valid() bool { return f >= FlareToPeak && f <= SEPToMax }

func (f DelayFamily) String() string {
	if !f.Valid() {
		return fmt.Sprintf("DelayFamily(%d)", int(f))
	}
	return delayDefs[f].name
}

// Slug is a file-name friendly identifier.
func (f DelayFamily) Slug() string {
	if !f.Valid() {
		return ""
	}
	return delayDefs[f].slug
}

// Field is the delay column of event type e.
func (f DelayFamily) Field(e EventType) Field {
	return MustField(e, delayDefs[f].suffix)
}

// DelaySources is the set of columns a delay is computed from.
type DelaySources struct {
	Target Field
	Origin Field
	Gate   *Field
}

// Sources returns the columns that define family f for event type e.
func (f DelayFamily) Sources(e EventType) DelaySources {
	d := delayDefs[f]
	src := DelaySources{Target: MustField(e, d.target)}
	if d.originSuffix != "" {
		src.Origin = MustField(e, d.originSuffix)
	} else {
		src.Origin = GlobalField(d.originGlobal)
	}
	if d.gate != "" {
		g := MustField(e, d.gate)
		src.Gate = &g
	}
	return src
}

// Fields lists every source column, gate included.
func (s DelaySources) Fields() []Field {
	fields := []Field{s.Target, s.Origin}
	if s.Gate != nil {
		fields = append(fields, *s.Gate)
	}
	return fields
}

// DelayMinutes is the signed elapsed time from earlier to later in minutes,
// with sub-second precision kept. It does not go through time.Duration, which
// saturates for instants more than about 292 years apart.
func DelayMinutes(later, earlier time.Time) float64 {
	secs := float64(later.Unix() - earlier.Unix())
	nanos := float64(later.Nanosecond() - earlier.Nanosecond())
	return (secs + nanos/1e9) / 60.0
}

// sourceColumns resolves and type-checks the source columns of s.
func sourceColumns(t *Table, s DelaySources) (target, origin, gate *Column, err error) {
	if target, err = t.Lookup(s.Target, KindTime); err != nil {
		return nil, nil, nil, err
	}
	if origin, err = t.Lookup(s.Origin, KindTime); err != nil {
		return nil, nil, nil, err
	}
	if s.Gate != nil {
		// The gate is a presence check, so any kind will do.
		c, ok := t.Column(s.Gate.Column())
		if !ok {
			return nil, nil, nil, fmt.Errorf("%w: %q", ErrMissingColumn, s.Gate.Column())
		}
		gate = c
	}
	return target, origin, gate, nil
}

// ComputeDelay computes one family for every event type and returns a table
// with the delay columns added or overwritten. A delay is defined iff both
// source timestamps (and the gate, when the family has one) are defined.
func ComputeDelay(t *Table, f DelayFamily) (*Table, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("compute delay: unknown family %d", int(f))
	}
	cols := make([]*Column, 0, len(EventTypes()))
	for _, e := range EventTypes() {
		target, origin, gate, err := sourceColumns(t, f.Sources(e))
		if err != nil {
			return nil, fmt.Errorf("compute %s delay for %s: %w", f, e, err)
		}

		values := make([]float64, t.Len())
		valid := make([]bool, t.Len())
		for i := range values {
			if gate != nil && gate.IsNull(i) {
				continue
			}
			to, ok1 := target.Time(i)
			from, ok2 := origin.Time(i)
			if !ok1 || !ok2 {
				continue
			}
			values[i], valid[i] = DelayMinutes(to, from), true
		}

		col, err := NewNumberColumn(f.Field(e).Column(), values, valid)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return t.With(cols...)
}

// ComputeAllDelays computes every family. Rise times already present in the
// source are overwritten.
func ComputeAllDelays(t *Table) (*Table, error) {
	out := t
	for _, f := range DelayFamilies() {
		next, err := ComputeDelay(out, f)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}
