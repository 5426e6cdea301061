// Package tablescrape reads rendered tables into rows of cell text.
//
// Columns are selected by header label, not by position: the caller names the
// headers it wants and Extract resolves which physical columns carry them on
// the current page. A wanted header that the table does not render is ignored.
// When several columns share a wanted label, every one of them is returned.
package tablescrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCellMissing is returned when a body row has no cell at a resolved column
var ErrCellMissing = errors.New("tablescrape: cell missing")

// Rows is a snapshot of a table: one entry per body row, each holding the
// text of the resolved columns in physical order.
type Rows [][]string

// Table is the read-only DOM view Extract needs
type Table interface {
	// HeaderTexts returns the text of every header cell, left to right
	HeaderTexts(ctx context.Context) ([]string, error)
	// BodyRows returns the data rows in document order
	BodyRows(ctx context.Context) ([]Row, error)
}

// Row reads single cells of one data row
type Row interface {
	// CellText returns the verbatim text of the cell at index,
	// or an error wrapping ErrCellMissing when the row is shorter.
	CellText(ctx context.Context, index int) (string, error)
}

// Resolve returns the physical indices of the headers whose label is in
// wanted, in physical order. Blank header cells never match.
func Resolve(headers, wanted []string) []int {
	want := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		want[w] = struct{}{}
	}

	indices := make([]int, 0, len(wanted))
	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			continue
		}
		if _, ok := want[h]; ok {
			indices = append(indices, i)
		}
	}
	return indices
}

// Extract reads the wanted columns of every body row. Only cells at resolved
// indices are read.
func Extract(ctx context.Context, table Table, wanted []string) (Rows, error) {
	headers, err := table.HeaderTexts(ctx)
	if err != nil {
		return nil, fmt.Errorf("read headers: %w", err)
	}
	indices := Resolve(headers, wanted)

	rows, err := table.BodyRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	out := make(Rows, 0, len(rows))
	for r, row := range rows {
		values := make([]string, 0, len(indices))
		for _, idx := range indices {
			text, err := row.CellText(ctx, idx)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", r, idx, err)
			}
			values = append(values, text)
		}
		out = append(out, values)
	}

	return out, nil
}

// String renders one line per row with cells separated by " | "
func (r Rows) String() string {
	var sb strings.Builder
	for _, row := range r {
		sb.WriteString(strings.Join(row, " | "))
		sb.WriteByte('\n')
	}
	return sb.String()
}
