package tables

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/pdftext"
)

const (
	// rulingTolerance is how far apart, in points, two rulings may be and
	// still count as the same line or as touching.
	rulingTolerance = 2.0
	// minRulingLength drops tick marks and the short sides of thin filled
	// rectangles.
	minRulingLength = 5.0
)

// Lattice detects tables drawn with ruling lines. Every grid of at least
// two cells becomes a table labelled "Table i", numbered across the whole
// document in detection order. Grids without any text keep their number
// but are not returned.
type Lattice struct {
	rulings   RulingSource
	tolerance float64
}

func NewLattice(src RulingSource) *Lattice {
	return &Lattice{rulings: src, tolerance: rulingTolerance}
}

func (l *Lattice) Name() string { return "lattice" }

func (l *Lattice) Extract(ctx context.Context, in Input) ([]Table, error) {
	rulings, err := l.rulings.PageRulings(ctx, in.Path)
	if err != nil {
		return nil, err
	}

	pages := make([]int, 0, len(rulings))
	for p := range rulings {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	var (
		found []Table
		index int
	)
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		grids := findGrids(rulings[page], l.tolerance)
		if len(grids) == 0 {
			continue
		}
		glyphs, err := in.Pages.PageGlyphs(page)
		if err != nil {
			return nil, fmt.Errorf("failed to read glyphs of page %d: %w", page, err)
		}
		for _, g := range grids {
			index++
			cells := g.fill(glyphs)
			if isEmpty(cells) {
				continue
			}
			found = append(found, Table{
				Label:  fmt.Sprintf("Table %d", index),
				Page:   page,
				Header: IndexHeader(len(g.xs) - 1),
				Rows:   cells,
			})
		}
	}
	return found, nil
}

// rule is an axis-aligned ruling: pos is the fixed coordinate, lo..hi the
// extent along the other axis.
type rule struct {
	pos, lo, hi float64
}

// grid holds the cell boundaries of one table: xs left to right, ys top to
// bottom.
type grid struct {
	xs []float64
	ys []float64
}

func findGrids(segs []Segment, tol float64) []grid {
	var hs, vs []rule
	for _, s := range segs {
		dx, dy := math.Abs(s.X2-s.X1), math.Abs(s.Y2-s.Y1)
		switch {
		case dy <= tol/2 && dx >= minRulingLength:
			hs = append(hs, rule{pos: (s.Y1 + s.Y2) / 2, lo: min(s.X1, s.X2), hi: max(s.X1, s.X2)})
		case dx <= tol/2 && dy >= minRulingLength:
			vs = append(vs, rule{pos: (s.X1 + s.X2) / 2, lo: min(s.Y1, s.Y2), hi: max(s.Y1, s.Y2)})
		}
	}
	hs, vs = mergeRules(hs, tol), mergeRules(vs, tol)
	if len(hs) < 2 || len(vs) < 2 {
		return nil
	}

	// Union rulings that cross or touch. Horizontal i is node i, vertical j
	// is node len(hs)+j.
	parent := make([]int, len(hs)+len(vs))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for i, h := range hs {
		for j, v := range vs {
			if v.pos >= h.lo-tol && v.pos <= h.hi+tol && h.pos >= v.lo-tol && h.pos <= v.hi+tol {
				parent[find(i)] = find(len(hs) + j)
			}
		}
	}

	type component struct{ hs, vs []float64 }
	comps := make(map[int]*component)
	var order []int
	get := func(root int) *component {
		c, ok := comps[root]
		if !ok {
			c = &component{}
			comps[root] = c
			order = append(order, root)
		}
		return c
	}
	for i, h := range hs {
		c := get(find(i))
		c.hs = append(c.hs, h.pos)
	}
	for j, v := range vs {
		c := get(find(len(hs) + j))
		c.vs = append(c.vs, v.pos)
	}

	var grids []grid
	for _, root := range order {
		c := comps[root]
		xs := clusterPositions(c.vs, tol)
		ys := clusterPositions(c.hs, tol)
		// A lone box is a frame or a callout, not a table.
		if len(xs) < 2 || len(ys) < 2 || len(xs)*len(ys) < 6 {
			continue
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(ys)))
		grids = append(grids, grid{xs: xs, ys: ys})
	}
	sort.SliceStable(grids, func(a, b int) bool {
		if math.Abs(grids[a].ys[0]-grids[b].ys[0]) > tol {
			return grids[a].ys[0] > grids[b].ys[0]
		}
		return grids[a].xs[0] < grids[b].xs[0]
	})
	return grids
}

// mergeRules joins rulings on the same line whose extents overlap or touch.
func mergeRules(rules []rule, tol float64) []rule {
	if len(rules) == 0 {
		return nil
	}
	sort.Slice(rules, func(a, b int) bool { return rules[a].pos < rules[b].pos })

	var merged []rule
	for start := 0; start < len(rules); {
		end := start + 1
		for end < len(rules) && rules[end].pos-rules[start].pos <= tol {
			end++
		}
		line := append([]rule(nil), rules[start:end]...)
		sum := 0.0
		for _, r := range line {
			sum += r.pos
		}
		pos := sum / float64(len(line))

		sort.Slice(line, func(a, b int) bool { return line[a].lo < line[b].lo })
		cur := rule{pos: pos, lo: line[0].lo, hi: line[0].hi}
		for _, r := range line[1:] {
			if r.lo <= cur.hi+tol {
				cur.hi = max(cur.hi, r.hi)
				continue
			}
			merged = append(merged, cur)
			cur = rule{pos: pos, lo: r.lo, hi: r.hi}
		}
		merged = append(merged, cur)
		start = end
	}
	return merged
}

// clusterPositions returns the distinct positions, ascending, treating
// values within tol of each other as one.
func clusterPositions(ps []float64, tol float64) []float64 {
	if len(ps) == 0 {
		return nil
	}
	sorted := append([]float64(nil), ps...)
	sort.Float64s(sorted)
	out := []float64{sorted[0]}
	for _, p := range sorted[1:] {
		if p-out[len(out)-1] > tol {
			out = append(out, p)
		}
	}
	return out
}

// fill places each glyph in the cell containing its centre and returns the
// cell texts row by row.
func (g grid) fill(glyphs []pdftext.Glyph) [][]string {
	rows, cols := len(g.ys)-1, len(g.xs)-1
	buckets := make([][][]pdftext.Glyph, rows)
	for r := range buckets {
		buckets[r] = make([][]pdftext.Glyph, cols)
	}
	for _, gl := range glyphs {
		cx := gl.X + gl.W/2
		cy := gl.Y + gl.FontSize*0.3
		c := sort.Search(cols, func(i int) bool { return g.xs[i+1] > cx })
		r := sort.Search(rows, func(i int) bool { return g.ys[i+1] < cy })
		if c >= cols || cx < g.xs[0] || r >= rows || cy > g.ys[0] {
			continue
		}
		buckets[r][c] = append(buckets[r][c], gl)
	}

	out := make([][]string, rows)
	for r := range buckets {
		out[r] = make([]string, cols)
		for c, cell := range buckets[r] {
			out[r][c] = joinGlyphs(cell)
		}
	}
	return out
}

func isEmpty(cells [][]string) bool {
	for _, row := range cells {
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				return false
			}
		}
	}
	return true
}
