package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// DateLayout is how index dates are rendered.
const DateLayout = "2006-01-02"

// Table is a frame with its index moved into an ordinary leading column.
type Table struct {
	Header []string
	Rows   [][]string
}

// ResetIndex returns the frame as a Table whose first column holds the
// index dates. Column labels must be single-level; call Flatten first.
func (f *Frame) ResetIndex() (*Table, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Levels() > 1 {
		return nil, fmt.Errorf("frame: reset index on %d-level columns, flatten first", f.Levels())
	}

	name := f.IndexName
	if name == "" {
		name = IndexName
	}

	t := &Table{
		Header: make([]string, 0, len(f.Columns)+1),
		Rows:   make([][]string, 0, len(f.Rows)),
	}
	t.Header = append(t.Header, name)
	for _, c := range f.Columns {
		t.Header = append(t.Header, c.Field())
	}

	for i, r := range f.Rows {
		row := make([]string, 0, len(r)+1)
		row = append(row, f.Index[i].Format(DateLayout))
		for _, v := range r {
			row = append(row, FormatFloat(v))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV writes the header and every row. There is no index column.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// FormatFloat renders v as the shortest decimal text that parses back to v.
// NaN marks a missing value and renders as an empty cell.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
