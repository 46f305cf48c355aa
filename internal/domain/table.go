package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrMissingColumn is returned when a required column is absent from a table.
	ErrMissingColumn = errors.New("missing column")

	// ErrColumnKind is returned when a column does not hold the expected value kind.
	ErrColumnKind = errors.New("unexpected column kind")

	// ErrRowCount is returned when columns of different lengths are combined.
	ErrRowCount = errors.New("row count mismatch")
)

// Kind is the value type held by a column.
type Kind uint8

const (
	KindText Kind = iota
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// TimeLayout is used to render timestamps in logs, reports, and snapshots.
const TimeLayout = time.RFC3339Nano

// Column is a typed, immutable catalog column. A cell is null when its
// validity flag is false; the value slot of a null cell is meaningless.
type Column struct {
	name  string
	kind  Kind
	valid []bool
	text  []string
	num   []float64
	times []time.Time
}

// NewTextColumn builds a text column. The column takes ownership of the slices.
func NewTextColumn(name string, values []string, valid []bool) (*Column, error) {
	if len(values) != len(valid) {
		return nil, fmt.Errorf("%w: column %q has %d values and %d flags", ErrRowCount, name, len(values), len(valid))
	}
	return &Column{name: name, kind: KindText, text: values, valid: valid}, nil
}

// NewNumberColumn builds a numeric column. The column takes ownership of the slices.
func NewNumberColumn(name string, values []float64, valid []bool) (*Column, error) {
	if len(values) != len(valid) {
		return nil, fmt.Errorf("%w: column %q has %d values and %d flags", ErrRowCount, name, len(values), len(valid))
	}
	return &Column{name: name, kind: KindNumber, num: values, valid: valid}, nil
}

// NewTimeColumn builds a timestamp column. The column takes ownership of the slices.
func NewTimeColumn(name string, values []time.Time, valid []bool) (*Column, error) {
	if len(values) != len(valid) {
		return nil, fmt.Errorf("%w: column %q has %d values and %d flags", ErrRowCount, name, len(values), len(valid))
	}
	return &Column{name: name, kind: KindTime, times: values, valid: valid}, nil
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }
func (c *Column) Len() int     { return len(c.valid) }

// IsNull reports whether row i holds no value.
func (c *Column) IsNull(i int) bool { return !c.valid[i] }

// Text returns the value of a text column at row i.
func (c *Column) Text(i int) (string, bool) {
	if c.kind != KindText || !c.valid[i] {
		return "", false
	}
	return c.text[i], true
}

// Number returns the value of a numeric column at row i.
func (c *Column) Number(i int) (float64, bool) {
	if c.kind != KindNumber || !c.valid[i] {
		return 0, false
	}
	return c.num[i], true
}

// Time returns the value of a timestamp column at row i.
func (c *Column) Time(i int) (time.Time, bool) {
	if c.kind != KindTime || !c.valid[i] {
		return time.Time{}, false
	}
	return c.times[i], true
}

// Format renders row i for humans; null cells render as "".
func (c *Column) Format(i int) string {
	if !c.valid[i] {
		return ""
	}
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num[i], 'g', -1, 64)
	case KindTime:
		return c.times[i].Format(TimeLayout)
	default:
		return c.text[i]
	}
}

// NonNull counts the defined cells.
func (c *Column) NonNull() int {
	n := 0
	for _, v := range c.valid {
		if v {
			n++
		}
	}
	return n
}

// CellEqual reports whether row i of c and row j of o hold the same value.
// Two null cells are equal; a null and a defined cell are not.
func (c *Column) CellEqual(i int, o *Column, j int) bool {
	if c.valid[i] != o.valid[j] {
		return false
	}
	if !c.valid[i] {
		return true
	}
	if c.kind != o.kind {
		return c.Format(i) == o.Format(j)
	}
	switch c.kind {
	case KindNumber:
		return c.num[i] == o.num[j]
	case KindTime:
		return c.times[i].Equal(o.times[j])
	default:
		return c.text[i] == o.text[j]
	}
}

func (c *Column) take(rows []int) *Column {
	out := &Column{name: c.name, kind: c.kind, valid: make([]bool, len(rows))}
	switch c.kind {
	case KindNumber:
		out.num = make([]float64, len(rows))
	case KindTime:
		out.times = make([]time.Time, len(rows))
	default:
		out.text = make([]string, len(rows))
	}
	for k, r := range rows {
		out.valid[k] = c.valid[r]
		switch c.kind {
		case KindNumber:
			out.num[k] = c.num[r]
		case KindTime:
			out.times[k] = c.times[r]
		default:
			out.text[k] = c.text[r]
		}
	}
	return out
}

// Table is an immutable, column-ordered view of the catalog. Every stage
// returns a new Table; columns are shared between tables and never mutated.
// Each row carries its original catalog index, which survives filtering.
type Table struct {
	cols  []*Column
	pos   map[string]int
	index []int
}

// NewTable assembles columns into a table whose row indexes are 0..n-1.
func NewTable(cols ...*Column) (*Table, error) {
	n := 0
	if len(cols) > 0 {
		n = cols[0].Len()
	}
	index := make([]int, n)
	for i := range index {
		index[i] = i
	}
	return NewIndexedTable(index, cols...)
}

// NewIndexedTable assembles columns with explicit original row indexes.
func NewIndexedTable(index []int, cols ...*Column) (*Table, error) {
	t := &Table{pos: make(map[string]int, len(cols)), index: index}
	for _, c := range cols {
		if c.Len() != len(index) {
			return nil, fmt.Errorf("%w: column %q has %d rows, table has %d", ErrRowCount, c.name, c.Len(), len(index))
		}
		if _, dup := t.pos[c.name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.name)
		}
		t.pos[c.name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.index) }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.cols) }

// Index returns the original catalog index of row i.
func (t *Table) Index(i int) int { return t.index[i] }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.name
	}
	return names
}

// Columns returns the columns in order.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.cols...)
}

// Column looks a column up by name.
func (t *Table) Column(name string) (*Column, bool) {
	p, ok := t.pos[name]
	if !ok {
		return nil, false
	}
	return t.cols[p], true
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.pos[name]
	return ok
}

// Require checks that every field is present.
func (t *Table) Require(fields ...Field) error {
	var missing []error
	for _, f := range fields {
		if !t.Has(f.Column()) {
			missing = append(missing, fmt.Errorf("%w: %q", ErrMissingColumn, f.Column()))
		}
	}
	return errors.Join(missing...)
}

// Lookup returns the column of f and checks its kind.
func (t *Table) Lookup(f Field, kind Kind) (*Column, error) {
	c, ok := t.Column(f.Column())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, f.Column())
	}
	if c.kind != kind {
		return nil, fmt.Errorf("%w: %q is %s, want %s", ErrColumnKind, f.Column(), c.kind, kind)
	}
	return c, nil
}

// With returns a table where each given column replaces the same-named column
// in place, or is appended when no such column exists.
func (t *Table) With(cols ...*Column) (*Table, error) {
	out := &Table{
		cols:  append([]*Column(nil), t.cols...),
		pos:   make(map[string]int, len(t.pos)+len(cols)),
		index: t.index,
	}
	for k, v := range t.pos {
		out.pos[k] = v
	}
	for _, c := range cols {
		if c.Len() != len(t.index) {
			return nil, fmt.Errorf("%w: column %q has %d rows, table has %d", ErrRowCount, c.name, c.Len(), len(t.index))
		}
		if p, ok := out.pos[c.name]; ok {
			out.cols[p] = c
			continue
		}
		out.pos[c.name] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out, nil
}

// Filter keeps the rows whose mask entry is true, in their original order.
func (t *Table) Filter(mask []bool) *Table {
	rows := make([]int, 0, len(t.index))
	for i, keep := range mask {
		if keep {
			rows = append(rows, i)
		}
	}
	out := &Table{cols: make([]*Column, len(t.cols)), pos: t.pos, index: make([]int, len(rows))}
	for k, r := range rows {
		out.index[k] = t.index[r]
	}
	for i, c := range t.cols {
		out.cols[i] = c.take(rows)
	}
	return out
}

// Equal reports whether both tables have the same columns in the same order,
// the same row indexes, and equal cells.
func (t *Table) Equal(o *Table) bool {
	if t.Len() != o.Len() || t.Width() != o.Width() {
		return false
	}
	for i := range t.index {
		if t.index[i] != o.index[i] {
			return false
		}
	}
	for ci, c := range t.cols {
		oc := o.cols[ci]
		if c.name != oc.name || c.kind != oc.kind {
			return false
		}
		for i := range t.index {
			if !c.CellEqual(i, oc, i) {
				return false
			}
		}
	}
	return true
}

// RowLabel identifies row i for logs: the period start when available.
func (t *Table) RowLabel(i int) string {
	if c, ok := t.Column(ColPeriodStart); ok {
		return c.Format(i)
	}
	return ""
}
