// Package domain models catalogs of Solar Energetic Particle (SEP) events and
// the delays derived from them.
//
// # Data Source
//
// Catalogs are the "sep_events" CSV files produced by the OpSEP/CLEAR tooling
// from GOES integral proton fluxes, e.g.
// GOES_integral_PRIMARY.1986-02-03.2025-09-10_sep_events.csv. One row is one
// observed time period. The file is supplied externally; provenance is not
// checked.
//
// # Event Types
//
// Each row carries eight parallel sub-records, one per event type. An event
// type is a detection method crossed with an energy channel:
//
//	TC (threshold crossing):  >10 MeV 10 pfu, >30/>50/>100 MeV 1 pfu
//	AB (above background):    >10/>30/>50/>100 MeV 1e-06 pfu
//
// Per-type columns are addressed by concatenating the type label and a field
// suffix, e.g. ">10.0 MeV 10.0 pfu " + "Onset Peak Time". The label keeps its
// trailing space. Use [Col] or [NewField] rather than literal strings.
//
// # Null Values
//
// Empty cells and the usual spreadsheet null tokens load as null. Cells that
// do not parse as the column's type also become null during normalization
// and are reported as [Change] entries; normalization never fails on content.
//
// # Delays
//
// All delays are signed minutes, (target - origin) / 60 s, computed from
// absolute instants without rounding:
//
//	flare to peak:  onset peak time  - flare X-ray peak time
//	flare to max:   max flux time    - flare X-ray peak time   (requires SEP start)
//	CME to peak:    onset peak time  - CME CDAW first look
//	CME to max:     max flux time    - CME CDAW first look
//	rise to onset:  onset peak time  - SEP start time
//	rise to max:    max flux time    - SEP start time
//
// A delay is defined only when every source timestamp is defined. The SEP
// start requirement on flare to max is deliberate and has no counterpart on
// CME to max. Source catalogs already contain rise-time columns with known
// data-entry errors; [ComputeAllDelays] overwrites them.
//
// # Tables
//
// [Table] is an immutable columnar value. Stages return new tables and share
// unchanged columns. Rows keep their original catalog index through
// filtering, so diagnostics always point at catalog rows.
package domain
