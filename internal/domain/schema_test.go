package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypes_Order(t *testing.T) {
	types := EventTypes()
	require.Len(t, types, 8)

	labels := make([]string, len(types))
	for i, e := range types {
		labels[i] = e.Label()
	}
	assert.Equal(t, []string{
		">10.0 MeV 10.0 pfu ",
		">30.0 MeV 1.0 pfu ",
		">50.0 MeV 1.0 pfu ",
		">100.0 MeV 1.0 pfu ",
		">10.0 MeV 1e-06 pfu ",
		">30.0 MeV 1e-06 pfu ",
		">50.0 MeV 1e-06 pfu ",
		">100.0 MeV 1e-06 pfu ",
	}, labels)
}

func TestParseEventType(t *testing.T) {
	tests := []struct {
		in   string
		want EventType
	}{
		{"TC_10", TC10},
		{"tc100", TC100},
		{"AB_50", AB50},
		{" ab_30 ", AB30},
		{">10.0 MeV 10.0 pfu ", TC10},
		{">100.0 MeV 1e-06 pfu", AB100},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEventType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseEventType("TC_20")
	require.ErrorIs(t, err, ErrUnknownEventType)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "TC_10", TC10.String())
	assert.Equal(t, "AB_100", AB100.String())
	assert.Equal(t, "EventType(42)", EventType(42).String())
	assert.Empty(t, EventType(-1).Label())
}

func TestCol_Concatenates(t *testing.T) {
	assert.Equal(t, ">10.0 MeV 10.0 pfu Onset Peak Time", Col(TC10, SuffixOnsetPeakTime))
	assert.Equal(t, ">50.0 MeV 1e-06 pfu SEP Start Time", Col(AB50, SuffixSEPStartTime))
}

func TestNewField(t *testing.T) {
	f, err := NewField(TC30, SuffixMaxFluxTime)
	require.NoError(t, err)
	assert.Equal(t, ">30.0 MeV 1.0 pfu Max Flux Time", f.Column())
	e, perType := f.EventType()
	assert.True(t, perType)
	assert.Equal(t, TC30, e)
	assert.Equal(t, SuffixMaxFluxTime, f.Suffix())

	t.Run("typo in suffix", func(t *testing.T) {
		_, err := NewField(TC30, "Max Flux Tme")
		require.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("invalid event type", func(t *testing.T) {
		_, err := NewField(EventType(9), SuffixMaxFluxTime)
		require.ErrorIs(t, err, ErrUnknownEventType)
	})

	t.Run("must field panics", func(t *testing.T) {
		assert.Panics(t, func() { MustField(TC10, "nope") })
	})

	t.Run("global field", func(t *testing.T) {
		g := GlobalField(ColLongitude)
		_, perType := g.EventType()
		assert.False(t, perType)
		assert.Equal(t, ColLongitude, g.String())
		assert.Empty(t, g.Suffix())
	})
}

func TestCatalogSuffixes_Registered(t *testing.T) {
	for _, s := range CatalogSuffixes() {
		_, err := NewField(TC10, s)
		assert.NoError(t, err, s)
	}
	for _, f := range DelayFamilies() {
		for _, e := range EventTypes() {
			assert.NotPanics(t, func() { f.Field(e) })
		}
	}
}

func TestHemispheres_ShareZero(t *testing.T) {
	assert.True(t, Eastern.Contains(0))
	assert.True(t, Western.Contains(0))
	assert.True(t, Eastern.Contains(-180))
	assert.True(t, Western.Contains(180))
	assert.False(t, Eastern.Contains(0.5))
	assert.False(t, Western.Contains(-0.5))
}
