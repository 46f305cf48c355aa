// Package validation cross-checks derived catalog values against independent
// recomputation and checks the structural invariants of a catalog.
package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

var (
	// ErrDelayMismatch is returned when a stored delay disagrees with the value
	// recomputed from its source timestamps.
	ErrDelayMismatch = errors.New("delay mismatch")

	// ErrNegativeDelay is returned after a full scan found negative delays.
	ErrNegativeDelay = errors.New("negative delay")

	// ErrLongitudeRange is returned after a full scan found longitudes outside [-180, 180].
	ErrLongitudeRange = errors.New("longitude out of range")

	// ErrShapeMismatch is returned when two catalogs differ in size or columns.
	ErrShapeMismatch = errors.New("catalog shape mismatch")

	// ErrValueMismatch is returned when two catalogs differ cell by cell.
	ErrValueMismatch = errors.New("catalog value mismatch")
)

// Mode selects how value mismatches are handled.
type Mode int

const (
	// ModeStrict stops at the first mismatch.
	ModeStrict Mode = iota
	// ModeAudit scans everything, collects every mismatch, and fails once at the end.
	ModeAudit
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeAudit:
		return "audit"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "strict" or "audit", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "test":
		return ModeStrict, nil
	case "audit":
		return ModeAudit, nil
	default:
		return 0, fmt.Errorf("invalid validation mode %q: must be strict or audit", s)
	}
}

// Tolerance is a combined relative and absolute closeness bound.
type Tolerance struct {
	Rel float64
	Abs float64
}

// DefaultTolerance is used when no tolerance is configured.
var DefaultTolerance = Tolerance{Rel: 1e-6, Abs: 1e-6}

// Close reports whether got is within tolerance of want:
// |got - want| <= Abs + Rel*|want|.
func (t Tolerance) Close(got, want float64) bool {
	return math.Abs(got-want) <= t.Abs+t.Rel*math.Abs(want)
}

// Validator runs the catalog checks in one mode.
type Validator struct {
	mode   Mode
	tol    Tolerance
	logger *slog.Logger
}

// New creates a Validator. A nil logger uses slog.Default().
func New(mode Mode, tol Tolerance, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{mode: mode, tol: tol, logger: logger}
}

// Mode returns the configured mode.
func (v *Validator) Mode() Mode { return v.mode }
