package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/couchcryptid/sep-event-etl/internal/report"
	"github.com/couchcryptid/sep-event-etl/internal/validation"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)

func newWriter(t *testing.T) (*report.Writer, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "reports")
	return report.NewWriter(dir, clockwork.NewFakeClockAt(fixedNow)), dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestWriteSignViolations(t *testing.T) {
	w, dir := newWriter(t)
	r := validation.SignReport{
		NonNull: map[domain.DelayFamily]int{domain.FlareToPeak: 12, domain.CMEToMax: 4},
		Violations: map[domain.DelayFamily][]validation.Violation{
			domain.FlareToPeak: {
				{Index: 3, PeriodStart: "2001-04-15T13:00:00Z", EventType: domain.TC100, Family: domain.FlareToPeak, Value: -12.5},
			},
		},
	}

	paths, err := w.WriteSignViolations(r)
	require.NoError(t, err)
	require.Len(t, paths, 6, "one file per family, even when empty")

	got := readFile(t, filepath.Join(dir, "flare_to_peak_negative_delays.txt"))
	assert.Equal(t, "# flare to peak: negative delays\n"+
		"# generated 2025-09-10T12:00:00Z\n"+
		"# 1 negative values over 12 non-null values\n\n"+
		"2001-04-15T13:00:00Z (index=3) TC_100: -12.5 min\n", got)

	empty := readFile(t, filepath.Join(dir, "cme_to_max_negative_delays.txt"))
	assert.Contains(t, empty, "# 0 negative values over 4 non-null values")
}

func TestWriteSignViolations_Regenerates(t *testing.T) {
	w, dir := newWriter(t)
	r := validation.SignReport{
		Violations: map[domain.DelayFamily][]validation.Violation{
			domain.SEPToMax: {{Index: 1, EventType: domain.AB10, Value: -1}},
		},
	}
	_, err := w.WriteSignViolations(r)
	require.NoError(t, err)

	_, err = w.WriteSignViolations(validation.SignReport{})
	require.NoError(t, err)
	got := readFile(t, filepath.Join(dir, report.SignViolationsFile(domain.SEPToMax)))
	assert.NotContains(t, got, "AB_10", "reports are not appended to")
}

func TestWriteMismatches(t *testing.T) {
	w, dir := newWriter(t)
	r := validation.EqualityReport{
		Family:  domain.SEPToMax,
		Checked: 16,
		NonNull: 1,
		Mismatches: []validation.Mismatch{{
			Index:           0,
			PeriodStart:     "2012-01-23T03:00:00Z",
			EventType:       domain.TC10,
			Family:          domain.SEPToMax,
			Origin:          "2012-01-23T05:00:00Z",
			Target:          "2012-01-24T15:30:00Z",
			Expected:        2070,
			ExpectedDefined: true,
			Stored:          2010,
			StoredDefined:   true,
		}},
	}

	path, err := w.WriteMismatches("source_", r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "source_sep_to_max_mismatches.txt"), path)

	got := readFile(t, path)
	assert.Contains(t, got, "# rise time to max: recomputation mismatches")
	assert.Contains(t, got, "# 1 mismatches, 1 matching non-null values, 16 pairs checked")
	assert.Contains(t, got, "2012-01-23T03:00:00Z (index=0) : rise time to max test failed for event type TC_10")
	assert.Contains(t, got, "\tCalculated: 2070 min , Stored: 2010 min")
	assert.Contains(t, got, "\tOrigin : 2012-01-23T05:00:00Z")
}

func TestWriteLongitude(t *testing.T) {
	w, _ := newWriter(t)
	path, err := w.WriteLongitude(validation.DomainReport{
		NonNull:    5,
		Violations: []validation.LongitudeViolation{{Index: 9, PeriodStart: "2025-09-01T00:00:00Z", Longitude: 999}},
	})
	require.NoError(t, err)
	got := readFile(t, path)
	assert.Contains(t, got, "# longitudes outside [-180, 180]")
	assert.Contains(t, got, "2025-09-01T00:00:00Z (index=9): longitude 999")
}

func TestPrintComparison(t *testing.T) {
	var out bytes.Buffer
	report.PrintComparison(&out, validation.Comparison{
		Left:  "CC",
		Right: "CA",
		Columns: []validation.ColumnDiff{
			{Column: domain.ColPeriodStart, Compared: 3},
			{
				Column:   domain.ColFlareMagnitude,
				Compared: 3,
				Count:    1,
				Differences: []validation.Difference{
					{Index: 1, PeriodStart: "1989-10-19 12:00:00", Left: "", Right: "1e-05"},
				},
			},
		},
	})

	got := out.String()
	assert.Contains(t, got, `The columns "Flare Magnitude" don't match...`)
	assert.Contains(t, got, "The value for the dataset CC is null while the value for the dataset CA is 1e-05")
	assert.Contains(t, got, `1 differences found in the column "Flare Magnitude" over 3 non-simultaneously null values`)
	assert.Contains(t, got, "The datasets CC and CA are not the same.")
	assert.NotContains(t, got, domain.ColPeriodStart)

	out.Reset()
	report.PrintComparison(&out, validation.Comparison{Left: "CC", Right: "KW"})
	assert.Contains(t, out.String(), "The datasets CC and KW are the same!")
}
