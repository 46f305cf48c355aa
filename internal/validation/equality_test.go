package validation_test

import (
	"testing"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/couchcryptid/sep-event-etl/internal/domain/domaintest"
	"github.com/couchcryptid/sep-event-etl/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoEvents() []domaintest.Row {
	second := domaintest.FlareEvent()
	second.PeriodStart = "2012-03-07 00:00:00"
	second.FlarePeak = "2012-03-07 00:24:00"
	second.CMEFirstLook = "2012-03-07 00:24:00"
	second.Events = map[domain.EventType]domaintest.Event{
		domain.TC10: {
			SEPStart:      "2012-03-07 05:10:00",
			OnsetPeakTime: "2012-03-07 08:40:00",
			MaxFluxTime:   "2012-03-08 15:20:00",
		},
		domain.AB30: {
			SEPStart:      "2012-03-07 02:00:00",
			OnsetPeakTime: "2012-03-07 04:00:00",
			MaxFluxTime:   "2012-03-07 06:00:00",
		},
	}
	return []domaintest.Row{
		domaintest.FlareEvent(),
		domaintest.QuietPeriod("2012-02-01 00:00:00", "10", ""),
		second,
	}
}

func TestCheckDelays_DerivedTablePasses(t *testing.T) {
	tbl := domaintest.Derived(t, twoEvents()...)
	v := newValidator(validation.ModeStrict)

	reports, err := v.CheckAllDelays(tbl)
	require.NoError(t, err)
	require.Len(t, reports, 6)

	byFamily := map[domain.DelayFamily]validation.EqualityReport{}
	for _, r := range reports {
		byFamily[r.Family] = r
		assert.Equal(t, 3*8, r.Checked)
		assert.Empty(t, r.Mismatches)
	}
	assert.Equal(t, 3, byFamily[domain.FlareToPeak].NonNull)
	assert.Equal(t, 3, byFamily[domain.FlareToMax].NonNull)
	assert.Equal(t, 3, byFamily[domain.SEPToMax].NonNull)
}

func TestCheckDelays_StrictFailsFast(t *testing.T) {
	tbl := domaintest.Derived(t, twoEvents()...)
	name := domain.FlareToPeak.Field(domain.TC10).Column()
	tbl = setNumber(t, tbl, name, 0, domaintest.Float(91))
	tbl = setNumber(t, tbl, name, 2, domaintest.Float(1))

	report, err := newValidator(validation.ModeStrict).CheckDelays(tbl, domain.FlareToPeak)
	require.ErrorIs(t, err, validation.ErrDelayMismatch)
	assert.Contains(t, err.Error(), "index=0")
	assert.Contains(t, err.Error(), "calculated 90 min, stored 91 min")
	assert.Empty(t, report.Mismatches)
}

func TestCheckDelays_AuditCollects(t *testing.T) {
	tbl := domaintest.Derived(t, twoEvents()...)
	name := domain.FlareToPeak.Field(domain.TC10).Column()
	tbl = setNumber(t, tbl, name, 0, domaintest.Float(91))
	tbl = setNumber(t, tbl, name, 2, nil)
	tbl = setNumber(t, tbl, domain.FlareToPeak.Field(domain.TC30).Column(), 1, domaintest.Float(5))

	report, err := newValidator(validation.ModeAudit).CheckDelays(tbl, domain.FlareToPeak)
	require.ErrorIs(t, err, validation.ErrDelayMismatch)
	assert.Contains(t, err.Error(), "3 flare to peak values")
	require.Len(t, report.Mismatches, 3)

	first := report.Mismatches[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, domain.TC10, first.EventType)
	assert.Equal(t, "2012-01-23T04:00:00Z", first.Origin)
	assert.Equal(t, "2012-01-23T05:30:00Z", first.Target)
	assert.True(t, first.ExpectedDefined)
	assert.Equal(t, 90.0, first.Expected)
	assert.Equal(t, 91.0, first.Stored)

	assert.Equal(t, 1, report.Mismatches[1].Index, "a value where none is expected")
	assert.False(t, report.Mismatches[1].ExpectedDefined)
	assert.True(t, report.Mismatches[1].StoredDefined)

	assert.Equal(t, 2, report.Mismatches[2].Index, "a missing value")
	assert.False(t, report.Mismatches[2].StoredDefined)
	assert.Equal(t, 1, report.NonNull)
}

func TestCheckDelays_GateAppliesToFlareToMax(t *testing.T) {
	rows := twoEvents()
	ev := rows[0].Events[domain.TC10]
	ev.SEPStart = ""
	rows[0].Events[domain.TC10] = ev
	tbl := domaintest.Derived(t, rows...)

	name := domain.FlareToMax.Field(domain.TC10).Column()
	_, err := newValidator(validation.ModeStrict).CheckDelays(tbl, domain.FlareToMax)
	require.NoError(t, err, "null under the gate is expected")

	tbl = setNumber(t, tbl, name, 0, domaintest.Float(2130))
	_, err = newValidator(validation.ModeStrict).CheckDelays(tbl, domain.FlareToMax)
	require.ErrorIs(t, err, validation.ErrDelayMismatch)

	_, err = newValidator(validation.ModeStrict).CheckDelays(tbl, domain.CMEToMax)
	require.NoError(t, err)
}

func TestCheckDelays_SourceRiseTimes(t *testing.T) {
	rows := twoEvents()
	ev := rows[0].Events[domain.TC10]
	ev.RiseToMax = "2010"
	rows[0].Events[domain.TC10] = ev

	source := domaintest.Normalized(t, rows...)
	v := newValidator(validation.ModeAudit)

	reports, err := v.CheckAllDelays(source, domain.SEPToPeak, domain.SEPToMax)
	require.ErrorIs(t, err, validation.ErrDelayMismatch)
	require.Len(t, reports, 2)
	assert.Len(t, reports[0].Mismatches, 2, "the 2012-03-07 rise times are empty")
	require.Len(t, reports[1].Mismatches, 3)
	assert.Equal(t, 2010.0, reports[1].Mismatches[0].Stored)
	assert.Equal(t, 2070.0, reports[1].Mismatches[0].Expected)
}

func TestCheckDelays_MissingColumn(t *testing.T) {
	source := domaintest.Normalized(t, domaintest.FlareEvent())
	_, err := newValidator(validation.ModeAudit).CheckDelays(source, domain.CMEToPeak)
	require.ErrorIs(t, err, domain.ErrMissingColumn)
}

func TestMismatch_String(t *testing.T) {
	m := validation.Mismatch{
		Index:         3,
		PeriodStart:   "2012-01-23T03:00:00Z",
		EventType:     domain.TC10,
		Family:        domain.SEPToMax,
		Origin:        "2012-01-23T05:00:00Z",
		Stored:        2010,
		StoredDefined: true,
	}
	got := m.String()
	assert.Contains(t, got, "(index=3)")
	assert.Contains(t, got, "calculated null, stored 2010 min")
	assert.Contains(t, got, "origin 2012-01-23T05:00:00Z, target null")

	assert.Equal(t, "1.5 min", validation.FormatDelay(1.5, true))
	assert.Equal(t, "null", validation.FormatDelay(0, false))
	assert.Equal(t, "null", validation.OrNull(""))
	assert.Equal(t, "x", validation.OrNull("x"))
}
