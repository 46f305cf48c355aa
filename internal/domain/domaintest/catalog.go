// Package domaintest builds small SEP catalogs for tests.
package domaintest

import (
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/stretchr/testify/require"
)

// Event holds the per-event-type cells of one row. Empty strings are null.
type Event struct {
	FluxFile      string
	SEPStart      string
	OnsetPeakTime string
	MaxFluxTime   string
	RiseToOnset   string
	RiseToMax     string
}

// Row holds the cells of one catalog row. Empty strings are null.
type Row struct {
	PeriodStart    string
	FlarePeak      string
	CMEFirstLook   string
	FlareMagnitude string
	CDAWSpeed      string
	DONKISpeed     string
	Longitude      string
	Events         map[domain.EventType]Event
}

// Logger discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Raw builds an all-text catalog the way the CSV reader would.
func Raw(tb testing.TB, rows ...Row) *domain.Table {
	tb.Helper()

	var cols []*domain.Column
	add := func(name string, cell func(Row) string) {
		values := make([]string, len(rows))
		valid := make([]bool, len(rows))
		for i, r := range rows {
			values[i] = cell(r)
			valid[i] = values[i] != ""
		}
		c, err := domain.NewTextColumn(name, values, valid)
		require.NoError(tb, err)
		cols = append(cols, c)
	}

	add(domain.ColPeriodStart, func(r Row) string { return r.PeriodStart })
	add(domain.ColFlarePeakTime, func(r Row) string { return r.FlarePeak })
	add(domain.ColCMEFirstLook, func(r Row) string { return r.CMEFirstLook })
	add(domain.ColFlareMagnitude, func(r Row) string { return r.FlareMagnitude })
	add(domain.ColCDAWSpeed, func(r Row) string { return r.CDAWSpeed })
	add(domain.ColDONKISpeed, func(r Row) string { return r.DONKISpeed })
	add(domain.ColLongitude, func(r Row) string { return r.Longitude })

	for _, e := range domain.EventTypes() {
		add(domain.Col(e, domain.SuffixFluxTimeSeries), func(r Row) string { return r.Events[e].FluxFile })
		add(domain.Col(e, domain.SuffixSEPStartTime), func(r Row) string { return r.Events[e].SEPStart })
		add(domain.Col(e, domain.SuffixOnsetPeakTime), func(r Row) string { return r.Events[e].OnsetPeakTime })
		add(domain.Col(e, domain.SuffixRiseTimeToOnset), func(r Row) string { return r.Events[e].RiseToOnset })
		add(domain.Col(e, domain.SuffixMaxFluxTime), func(r Row) string { return r.Events[e].MaxFluxTime })
		add(domain.Col(e, domain.SuffixRiseTimeToMax), func(r Row) string { return r.Events[e].RiseToMax })
	}

	t, err := domain.NewTable(cols...)
	require.NoError(tb, err)
	return t
}

// Normalized builds and normalizes a catalog.
func Normalized(tb testing.TB, rows ...Row) *domain.Table {
	tb.Helper()
	t, _, err := domain.NormalizeCatalog(Raw(tb, rows...), Logger())
	require.NoError(tb, err)
	return t
}

// Derived builds, normalizes, and computes every delay.
func Derived(tb testing.TB, rows ...Row) *domain.Table {
	tb.Helper()
	t, err := domain.ComputeAllDelays(Normalized(tb, rows...))
	require.NoError(tb, err)
	return t
}

// FlareEvent is a complete TC_10 event with a 90 minute flare-to-peak delay.
func FlareEvent() Row {
	return Row{
		PeriodStart:    "2012-01-23 03:00:00",
		FlarePeak:      "2012-01-23 04:00:00",
		CMEFirstLook:   "2012-01-23 04:12:00",
		FlareMagnitude: "8.7e-05",
		CDAWSpeed:      "2175",
		DONKISpeed:     "2000",
		Longitude:      "21",
		Events: map[domain.EventType]Event{
			domain.TC10: {
				FluxFile:      "tc10_20120123.txt",
				SEPStart:      "2012-01-23 05:00:00",
				OnsetPeakTime: "2012-01-23 05:30:00",
				MaxFluxTime:   "2012-01-24 15:30:00",
				RiseToOnset:   "30",
				RiseToMax:     "2070",
			},
		},
	}
}

// QuietPeriod is a row without any SEP event.
func QuietPeriod(start, longitude, magnitude string) Row {
	return Row{
		PeriodStart:    start,
		FlareMagnitude: magnitude,
		Longitude:      longitude,
	}
}

// NumberColumn reads every cell of a numeric column; nil marks null.
func NumberColumn(tb testing.TB, t *domain.Table, name string) []*float64 {
	tb.Helper()
	c, ok := t.Column(name)
	require.True(tb, ok, "column %q", name)
	out := make([]*float64, c.Len())
	for i := range out {
		if v, ok := c.Number(i); ok {
			out[i] = &v
		}
	}
	return out
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
