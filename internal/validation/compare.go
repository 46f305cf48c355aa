package validation

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/sep-event-etl/internal/domain"
)

// Difference is one cell that differs between two catalogs.
type Difference struct {
	Index       int
	PeriodStart string
	Left        string
	Right       string
}

// ColumnDiff summarizes the differences found in one column.
type ColumnDiff struct {
	Column string
	// Compared counts the rows where at least one side is defined.
	Compared int
	// Count is the number of differing cells. It can exceed len(Differences)
	// for columns that are counted but not itemized.
	Count       int
	Differences []Difference
}

// Comparison is the outcome of comparing two catalogs cell by cell.
type Comparison struct {
	Left    string
	Right   string
	Columns []ColumnDiff
}

// Equal reports whether no differences were found.
func (c Comparison) Equal() bool {
	for _, col := range c.Columns {
		if col.Count > 0 {
			return false
		}
	}
	return true
}

// Differing returns the columns with at least one difference.
func (c Comparison) Differing() []ColumnDiff {
	var out []ColumnDiff
	for _, col := range c.Columns {
		if col.Count > 0 {
			out = append(out, col)
		}
	}
	return out
}

// itemized reports whether individual differences are kept for a column.
// Fluence spectra are long encoded arrays, so only their count is kept.
func itemized(column string) bool {
	return !strings.Contains(column, domain.SuffixFluenceSpectrum)
}

// CheckShape verifies that two catalogs have the same column count, row
// count, and column names in the same order. The first mismatching
// dimension is returned as an error wrapping ErrShapeMismatch.
func CheckShape(a *domain.Table, nameA string, b *domain.Table, nameB string) error {
	if a.Width() != b.Width() {
		return fmt.Errorf("%w: dataset %s has %d columns while dataset %s has %d columns",
			ErrShapeMismatch, nameA, a.Width(), nameB, b.Width())
	}
	if a.Len() != b.Len() {
		return fmt.Errorf("%w: dataset %s has %d rows while dataset %s has %d rows",
			ErrShapeMismatch, nameA, a.Len(), nameB, b.Len())
	}
	na, nb := a.Names(), b.Names()
	for k := range na {
		if na[k] != nb[k] {
			return fmt.Errorf("%w: column %d is %q in dataset %s but %q in dataset %s; a column may be missing or out of order",
				ErrShapeMismatch, k, na[k], nameA, nb[k], nameB)
		}
	}
	return nil
}

// CompareCatalogs checks the shape of two catalogs and then compares them
// column by column. Rows where both cells are null are skipped. In strict mode
// the first difference is returned as an error; in audit mode every
// difference is collected and one error wrapping ErrValueMismatch is returned
// at the end.
func (v *Validator) CompareCatalogs(a *domain.Table, nameA string, b *domain.Table, nameB string) (Comparison, error) {
	result := Comparison{Left: nameA, Right: nameB}
	if err := CheckShape(a, nameA, b, nameB); err != nil {
		return result, err
	}
	v.logger.Info("comparing datasets", "left", nameA, "right", nameB, "rows", a.Len(), "columns", a.Width())

	colsB := b.Columns()
	for ci, ca := range a.Columns() {
		cb := colsB[ci]
		diff := ColumnDiff{Column: ca.Name()}
		keep := itemized(ca.Name())

		for i := 0; i < a.Len(); i++ {
			if ca.IsNull(i) && cb.IsNull(i) {
				continue
			}
			diff.Compared++
			if cellsEqual(ca, cb, i) {
				continue
			}
			diff.Count++
			d := Difference{Index: a.Index(i), PeriodStart: a.RowLabel(i), Left: ca.Format(i), Right: cb.Format(i)}
			if keep {
				diff.Differences = append(diff.Differences, d)
			}
			if v.mode == ModeStrict {
				result.Columns = append(result.Columns, diff)
				return result, fmt.Errorf("%w: column %q at %s (index=%d): dataset %s has %q while dataset %s has %q",
					ErrValueMismatch, ca.Name(), d.PeriodStart, d.Index, nameA, d.Left, nameB, d.Right)
			}
		}

		if diff.Count > 0 {
			v.logger.Info("column differs",
				"column", diff.Column,
				"differences", diff.Count,
				"compared", diff.Compared,
			)
		} else {
			v.logger.Debug("column matches", "column", diff.Column)
		}
		result.Columns = append(result.Columns, diff)
	}

	if differing := result.Differing(); len(differing) > 0 {
		total := 0
		for _, d := range differing {
			total += d.Count
		}
		return result, fmt.Errorf("%w: datasets %s and %s differ in %d cells across %d columns",
			ErrValueMismatch, nameA, nameB, total, len(differing))
	}
	return result, nil
}

// cellsEqual compares row i of two same-named columns. Text cells that both
// parse as numbers compare numerically, so "1" and "1.0" are equal.
func cellsEqual(a, b *domain.Column, i int) bool {
	if a.CellEqual(i, b, i) {
		return true
	}
	if a.IsNull(i) || b.IsNull(i) {
		return false
	}
	x, errX := domain.ParseNumber(a.Format(i))
	y, errY := domain.ParseNumber(b.Format(i))
	if errX != nil || errY != nil {
		return false
	}
	return x == y
}
