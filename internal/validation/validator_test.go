package validation_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
	"github.com/couchcryptid/sep-event-etl/internal/domain/domaintest"
	"github.com/couchcryptid/sep-event-etl/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(mode validation.Mode) *validation.Validator {
	return validation.New(mode, validation.DefaultTolerance, domaintest.Logger())
}

// setNumber returns tbl with one numeric cell replaced; nil stores null.
func setNumber(t *testing.T, tbl *domain.Table, name string, row int, value *float64) *domain.Table {
	t.Helper()
	cells := domaintest.NumberColumn(t, tbl, name)
	cells[row] = value

	values := make([]float64, len(cells))
	valid := make([]bool, len(cells))
	for i, c := range cells {
		if c != nil {
			values[i], valid[i] = *c, true
		}
	}
	col, err := domain.NewNumberColumn(name, values, valid)
	require.NoError(t, err)
	out, err := tbl.With(col)
	require.NoError(t, err)
	return out
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want validation.Mode
	}{
		{"strict", validation.ModeStrict},
		{"STRICT", validation.ModeStrict},
		{"test", validation.ModeStrict},
		{" audit ", validation.ModeAudit},
	}
	for _, tt := range tests {
		got, err := validation.ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := validation.ParseMode("lenient")
	require.Error(t, err)
	assert.Equal(t, "audit", validation.ModeAudit.String())
}

func TestTolerance_Close(t *testing.T) {
	tol := validation.DefaultTolerance
	assert.True(t, tol.Close(90, 90))
	assert.True(t, tol.Close(90.0000001, 90))
	assert.True(t, tol.Close(1e-7, 0), "absolute term covers values near zero")
	assert.False(t, tol.Close(90.001, 90))
	assert.False(t, tol.Close(-30, 30))

	loose := validation.Tolerance{Rel: 0.01}
	assert.True(t, loose.Close(100.5, 100))
}

func TestNew_DefaultsLogger(t *testing.T) {
	v := validation.New(validation.ModeAudit, validation.DefaultTolerance, nil)
	assert.Equal(t, validation.ModeAudit, v.Mode())
	_, err := v.CheckLongitude(domaintest.Normalized(t, domaintest.FlareEvent()))
	assert.NoError(t, err)
}

func TestCheckDelays_LogsSummary(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	v := validation.New(validation.ModeStrict, validation.DefaultTolerance, logger)

	_, err := v.CheckDelays(domaintest.Derived(t, domaintest.FlareEvent()), domain.FlareToPeak)
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, "testing row")
	assert.Contains(t, out, "event_type=TC_10")
	assert.Contains(t, out, "delay check complete")
	assert.Contains(t, out, "non_null=1")
}
