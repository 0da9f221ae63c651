package tables

import (
	"context"
	"fmt"
	"math"
)

// Positional detects tables from text alignment alone. A line is split into
// cells at gaps wider than the column gap. Consecutive lines with the same
// number of cells (at least two), overlapping column for column and not
// too far apart vertically, form a table. Tables with more than one row are
// returned as "Table {page}-{n}" with the first row as header.
type Positional struct {
	// ColumnGapRatio and MinColumnGap set the column gap:
	// max(ColumnGapRatio*fontSize, MinColumnGap) points.
	ColumnGapRatio float64
	MinColumnGap   float64
	// RowGapRatio bounds the baseline distance, in font sizes, between two
	// rows of the same table.
	RowGapRatio float64
}

func NewPositional() *Positional {
	return &Positional{ColumnGapRatio: 1.5, MinColumnGap: 8, RowGapRatio: 2.5}
}

func (p *Positional) Name() string { return "positional" }

func (p *Positional) Extract(ctx context.Context, in Input) ([]Table, error) {
	var found []Table
	for page := 1; page <= in.Pages.NumPages(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		glyphs, err := in.Pages.PageGlyphs(page)
		if err != nil {
			return nil, fmt.Errorf("failed to read glyphs of page %d: %w", page, err)
		}
		for i, rows := range p.pageTables(groupLines(glyphs, lineTolerance(glyphs))) {
			found = append(found, Table{
				Label:  fmt.Sprintf("Table %d-%d", page, i+1),
				Page:   page,
				Header: rows[0],
				Rows:   rows[1:],
			})
		}
	}
	return found, nil
}

type positionedRow struct {
	y     float64
	size  float64
	spans []span
}

func (p *Positional) pageTables(lines []textLine) [][][]string {
	var (
		tables  [][][]string
		current []positionedRow
	)
	flush := func() {
		if len(current) > 1 {
			rows := make([][]string, len(current))
			for i, r := range current {
				rows[i] = make([]string, len(r.spans))
				for j, s := range r.spans {
					rows[i][j] = s.text
				}
			}
			tables = append(tables, rows)
		}
		current = nil
	}

	for _, l := range lines {
		gap := max(p.ColumnGapRatio*l.size, p.MinColumnGap)
		row := positionedRow{y: l.y, size: l.size, spans: splitSpans(l.glyphs, gap)}
		if len(row.spans) < 2 {
			flush()
			continue
		}
		if len(current) > 0 && !p.continues(current, row) {
			flush()
		}
		current = append(current, row)
	}
	flush()
	return tables
}

// continues reports whether row extends the table whose rows so far are
// given.
func (p *Positional) continues(table []positionedRow, row positionedRow) bool {
	prev := table[len(table)-1]
	if len(row.spans) != len(prev.spans) {
		return false
	}
	if math.Abs(prev.y-row.y) > p.RowGapRatio*max(prev.size, row.size) {
		return false
	}
	tol := max(prev.size, row.size)
	for i, s := range row.spans {
		lo, hi := columnExtent(table, i)
		if s.x1 > hi+tol || s.x2 < lo-tol {
			return false
		}
		// The span must not reach into the neighbouring columns.
		if i > 0 {
			if _, leftHi := columnExtent(table, i-1); s.x1 < leftHi {
				return false
			}
		}
		if i < len(row.spans)-1 {
			if rightLo, _ := columnExtent(table, i+1); s.x2 > rightLo {
				return false
			}
		}
	}
	return true
}

func columnExtent(table []positionedRow, col int) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, r := range table {
		lo = min(lo, r.spans[col].x1)
		hi = max(hi, r.spans[col].x2)
	}
	return lo, hi
}
