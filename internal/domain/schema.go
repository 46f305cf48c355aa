package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownEventType is returned when an event type name is not one of the eight catalog types.
	ErrUnknownEventType = errors.New("unknown event type")

	// ErrUnknownField is returned when a per-event-type suffix is not registered in the schema.
	ErrUnknownField = errors.New("unknown catalog field")
)

// EventType identifies one of the eight integral-flux event definitions: a
// detection method (threshold crossing or above background) combined with an
// energy channel.
type EventType int

const (
	TC10 EventType = iota
	TC30
	TC50
	TC100
	AB10
	AB30
	AB50
	AB100
)

// Column labels prefixing every per-event-type field. The trailing space is
// part of the label; field names are formed by plain concatenation.
const (
	LabelTC10  = ">10.0 MeV 10.0 pfu "
	LabelTC30  = ">30.0 MeV 1.0 pfu "
	LabelTC50  = ">50.0 MeV 1.0 pfu "
	LabelTC100 = ">100.0 MeV 1.0 pfu "
	LabelAB10  = ">10.0 MeV 1e-06 pfu "
	LabelAB30  = ">30.0 MeV 1e-06 pfu "
	LabelAB50  = ">50.0 MeV 1e-06 pfu "
	LabelAB100 = ">100.0 MeV 1e-06 pfu "
)

var eventTypeLabels = [...]string{
	TC10:  LabelTC10,
	TC30:  LabelTC30,
	TC50:  LabelTC50,
	TC100: LabelTC100,
	AB10:  LabelAB10,
	AB30:  LabelAB30,
	AB50:  LabelAB50,
	AB100: LabelAB100,
}

var eventTypeNames = [...]string{
	TC10:  "TC_10",
	TC30:  "TC_30",
	TC50:  "TC_50",
	TC100: "TC_100",
	AB10:  "AB_10",
	AB30:  "AB_30",
	AB50:  "AB_50",
	AB100: "AB_100",
}

// EventTypes returns all event types in catalog column order.
func EventTypes() []EventType {
	return []EventType{TC10, TC30, TC50, TC100, AB10, AB30, AB50, AB100}
}

// Valid reports whether e is one of the eight catalog event types.
func (e EventType) Valid() bool {
	return e >= TC10 && e <= AB100
}

// Label returns the column prefix for e, including its trailing space.
func (e EventType) Label() string {
	if !e.Valid() {
		return ""
	}
	return eventTypeLabels[e]
}

func (e EventType) String() string {
	if !e.Valid() {
		return fmt.Sprintf("EventType(%d)", int(e))
	}
	return eventTypeNames[e]
}

// ParseEventType accepts a short name ("TC_10", "tc10") or a column label
// (">10.0 MeV 10.0 pfu", with or without the trailing space).
func ParseEventType(s string) (EventType, error) {
	trimmed := strings.TrimSpace(s)
	short := strings.ToUpper(strings.ReplaceAll(trimmed, "_", ""))
	for _, e := range EventTypes() {
		if short == strings.ReplaceAll(eventTypeNames[e], "_", "") {
			return e, nil
		}
		if trimmed == strings.TrimSpace(eventTypeLabels[e]) {
			return e, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEventType, s)
}

// Per-event-type field suffixes.
const (
	SuffixFluxTimeSeries    = "Flux Time Series"
	SuffixSEPStartTime      = "SEP Start Time"
	SuffixSEPEndTime        = "SEP End Time"
	SuffixSEPDuration       = "SEP Duration (hours)"
	SuffixOnsetPeak         = "Onset Peak (pfu)"
	SuffixOnsetPeakTime     = "Onset Peak Time"
	SuffixRiseTimeToOnset   = "Rise Time to Onset (minutes)"
	SuffixMaxFlux           = "Max Flux (pfu)"
	SuffixMaxFluxTime       = "Max Flux Time"
	SuffixRiseTimeToMax     = "Rise Time to Max (minutes)"
	SuffixFluence           = "Fluence (cm^-2)"
	SuffixFluenceSpectrum   = "Fluence Spectrum (cm^-2)"
	SuffixFluenceEnergyBins = "Fluence Spectrum Energy Bins (MeV)"
	SuffixFluenceBinCenters = "Fluence Spectrum Energy Bin Centers (MeV)"
	SuffixFlareTimeToOnset  = "Flare Time to Onset (minutes)"
	SuffixFlareTimeToMax    = "Flare Time to Max (minutes)"
	SuffixCMETimeToOnset    = "CME Time to Onset (minutes)"
	SuffixCMETimeToMax      = "CME Time to Max (minutes)"
)

var knownSuffixes = map[string]bool{
	SuffixFluxTimeSeries:    true,
	SuffixSEPStartTime:      true,
	SuffixSEPEndTime:        true,
	SuffixSEPDuration:       true,
	SuffixOnsetPeak:         true,
	SuffixOnsetPeakTime:     true,
	SuffixRiseTimeToOnset:   true,
	SuffixMaxFlux:           true,
	SuffixMaxFluxTime:       true,
	SuffixRiseTimeToMax:     true,
	SuffixFluence:           true,
	SuffixFluenceSpectrum:   true,
	SuffixFluenceEnergyBins: true,
	SuffixFluenceBinCenters: true,
	SuffixFlareTimeToOnset:  true,
	SuffixFlareTimeToMax:    true,
	SuffixCMETimeToOnset:    true,
	SuffixCMETimeToMax:      true,
}

// CatalogSuffixes lists the per-event-type fields of a source catalog in
// column order. Derived flare/CME delay suffixes are not included.
func CatalogSuffixes() []string {
	return []string{
		SuffixFluxTimeSeries,
		SuffixSEPStartTime,
		SuffixSEPEndTime,
		SuffixSEPDuration,
		SuffixOnsetPeak,
		SuffixOnsetPeakTime,
		SuffixRiseTimeToOnset,
		SuffixMaxFlux,
		SuffixMaxFluxTime,
		SuffixRiseTimeToMax,
		SuffixFluence,
		SuffixFluenceSpectrum,
		SuffixFluenceEnergyBins,
		SuffixFluenceBinCenters,
	}
}

// Columns that do not depend on the event type.
const (
	ColPeriodStart    = "Time Period Start"
	ColPeriodEnd      = "Time Period End"
	ColFlarePeakTime  = "Flare Xray Peak Time"
	ColCMEFirstLook   = "CME CDAW First Look Time"
	ColFlareMagnitude = "Flare Magnitude"
	ColCDAWSpeed      = "CDAW CME Speed"
	ColDONKISpeed     = "DONKI CME Speed"
	ColLongitude      = "Event Longitude"
	ColLatitude       = "Event Latitude"
)

// Field addresses one catalog column. Per-event-type fields are validated
// against the registered suffixes when they are built, so a typo fails at
// construction instead of during row iteration.
type Field struct {
	name      string
	eventType EventType
	perType   bool
	suffix    string
}

// GlobalField addresses a column that is shared by every event type.
func GlobalField(name string) Field {
	return Field{name: name}
}

// NewField addresses the suffix column of event type e.
func NewField(e EventType, suffix string) (Field, error) {
	if !e.Valid() {
		return Field{}, fmt.Errorf("%w: %d", ErrUnknownEventType, int(e))
	}
	if !knownSuffixes[suffix] {
		return Field{}, fmt.Errorf("%w: %q", ErrUnknownField, suffix)
	}
	return Field{name: Col(e, suffix), eventType: e, perType: true, suffix: suffix}, nil
}

// MustField is like NewField but panics on an unregistered combination.
// It is meant for fields built from the package constants.
func MustField(e EventType, suffix string) Field {
	f, err := NewField(e, suffix)
	if err != nil {
		panic(err)
	}
	return f
}

// Col composes the column name of a per-event-type field.
func Col(e EventType, suffix string) string {
	return e.Label() + suffix
}

// Column returns the catalog column name.
func (f Field) Column() string { return f.name }

// EventType returns the event type of a per-type field and false for global fields.
func (f Field) EventType() (EventType, bool) { return f.eventType, f.perType }

// Suffix returns the per-type suffix, or "" for global fields.
func (f Field) Suffix() string { return f.suffix }

func (f Field) String() string { return f.name }

// Hemisphere longitude presets. A longitude of exactly 0 belongs to both.
var (
	Eastern = Range{Min: -180, Max: 0}
	Western = Range{Min: 0, Max: 180}
)
