// Package frame holds a provider price series in tabular form.
//
// A Frame keeps its date index apart from its value columns and records the
// shape of its column labels, so callers can normalize a multi-level
// response without guessing at positions.
package frame

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Standard OHLCV field names.
const (
	Open     = "Open"
	High     = "High"
	Low      = "Low"
	Close    = "Close"
	AdjClose = "Adj Close"
	Volume   = "Volume"
)

// IndexName is the name of the date index.
const IndexName = "Date"

// Label identifies a column. The first level is the field name; further
// levels qualify it, e.g. {"Close", "AAPL"}.
type Label []string

// Field returns the first level of the label.
func (l Label) Field() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

func (l Label) String() string {
	return strings.Join(l, "/")
}

// Frame is an ordered series of rows keyed by date.
type Frame struct {
	IndexName string
	Index     []time.Time
	Columns   []Label
	Rows      [][]float64 // Rows[i][j] is the value of Columns[j] at Index[i]
}

// New returns an empty frame with the given column labels.
func New(columns ...Label) *Frame {
	return &Frame{
		IndexName: IndexName,
		Columns:   columns,
	}
}

// Append adds a row. values must line up with Columns.
func (f *Frame) Append(t time.Time, values ...float64) error {
	if len(values) != len(f.Columns) {
		return fmt.Errorf("frame: row has %d values, want %d", len(values), len(f.Columns))
	}
	row := make([]float64, len(values))
	copy(row, values)
	f.Index = append(f.Index, t)
	f.Rows = append(f.Rows, row)
	return nil
}

// Len is the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Index)
}

// Empty reports whether the frame has no rows. A nil frame is empty.
func (f *Frame) Empty() bool {
	return f.Len() == 0
}

// Levels is the deepest label depth across all columns.
func (f *Frame) Levels() int {
	n := 0
	for _, c := range f.Columns {
		if len(c) > n {
			n = len(c)
		}
	}
	return n
}

// Flatten collapses every column label to its first level. A frame that
// is already single-level is left as it is, so Flatten is idempotent.
func (f *Frame) Flatten() {
	for i, c := range f.Columns {
		if len(c) > 1 {
			f.Columns[i] = Label{c.Field()}
		}
	}
}

// Column returns the position of the column whose field is name, or -1.
func (f *Frame) Column(name string) int {
	for i, c := range f.Columns {
		if c.Field() == name {
			return i
		}
	}
	return -1
}

// Validate checks that index and rows agree in length and width.
func (f *Frame) Validate() error {
	if len(f.Index) != len(f.Rows) {
		return fmt.Errorf("frame: %d index entries for %d rows", len(f.Index), len(f.Rows))
	}
	for i, r := range f.Rows {
		if len(r) != len(f.Columns) {
			return fmt.Errorf("frame: row %d has %d values, want %d", i, len(r), len(f.Columns))
		}
	}
	return nil
}

// SortByIndex orders rows by date ascending, keeping the relative order of
// equal dates.
func (f *Frame) SortByIndex() {
	sort.Stable(byIndex{f})
}

type byIndex struct{ f *Frame }

func (b byIndex) Len() int           { return len(b.f.Index) }
func (b byIndex) Less(i, j int) bool { return b.f.Index[i].Before(b.f.Index[j]) }
func (b byIndex) Swap(i, j int) {
	b.f.Index[i], b.f.Index[j] = b.f.Index[j], b.f.Index[i]
	b.f.Rows[i], b.f.Rows[j] = b.f.Rows[j], b.f.Rows[i]
}
