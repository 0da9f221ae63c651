package tables

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/pdftext"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/testpdf"
)

// word lays s out in a 0.6em monospaced font starting at (x, y).
func word(x, y, size float64, s string) []pdftext.Glyph {
	var out []pdftext.Glyph
	adv := 0.6 * size
	for i, r := range s {
		if r == ' ' {
			continue
		}
		out = append(out, pdftext.Glyph{X: x + float64(i)*adv, Y: y, W: adv, FontSize: size, S: string(r)})
	}
	return out
}

type fakePages map[int][]pdftext.Glyph

func (f fakePages) NumPages() int {
	n := 0
	for p := range f {
		n = max(n, p)
	}
	return n
}

func (f fakePages) PageGlyphs(n int) ([]pdftext.Glyph, error) {
	return f[n], nil
}

type fakeRulings map[int][]Segment

func (f fakeRulings) PageRulings(context.Context, string) (map[int][]Segment, error) {
	return f, nil
}

func gridSegments(xs, ys []float64) []Segment {
	var segs []Segment
	for _, l := range testpdf.Grid(xs, ys) {
		segs = append(segs, Segment{l.X1, l.Y1, l.X2, l.Y2})
	}
	return segs
}

func concat(parts ...[]pdftext.Glyph) []pdftext.Glyph {
	var out []pdftext.Glyph
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestLattice_Extract(t *testing.T) {
	// Two tables on page 1 (the lower one empty) and one on page 2.
	rulings := fakeRulings{
		1: append(gridSegments([]float64{100, 200, 300}, []float64{600, 620, 640}),
			gridSegments([]float64{100, 200, 300}, []float64{300, 320})...),
		2: gridSegments([]float64{50, 150}, []float64{500, 520, 540}),
	}
	pages := fakePages{
		1: concat(
			word(105, 625, 10, "Name"), word(205, 625, 10, "Qty"),
			word(105, 605, 10, "Apple pie"), word(205, 605, 10, "3"),
			word(105, 700, 10, "Outside"),
		),
		2: concat(word(55, 525, 10, "top"), word(55, 505, 10, "bottom")),
	}

	got, err := NewLattice(rulings).Extract(context.Background(), Input{Pages: pages})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Table 1", got[0].Label)
	assert.Equal(t, 1, got[0].Page)
	assert.Equal(t, []string{"0", "1"}, got[0].Header)
	assert.Equal(t, [][]string{{"Name", "Qty"}, {"Apple pie", "3"}}, got[0].Rows)

	// The empty grid on page 1 still takes number 2.
	assert.Equal(t, "Table 3", got[1].Label)
	assert.Equal(t, 2, got[1].Page)
	assert.Equal(t, [][]string{{"top"}, {"bottom"}}, got[1].Rows)
}

func TestFindGrids(t *testing.T) {
	t.Run("merges doubled and split rulings", func(t *testing.T) {
		segs := []Segment{
			{100, 100, 150, 100}, {150, 100.5, 200, 100.5}, // bottom, drawn in two pieces
			{100, 150, 200, 150}, {100, 150.4, 200, 150.4}, // top, drawn twice
			{100, 100, 100, 150}, {150, 100, 150, 150}, {200, 100, 200, 150},
			{300, 300, 302, 300}, // tick mark
		}
		grids := findGrids(segs, rulingTolerance)
		require.Len(t, grids, 1)
		assert.Equal(t, []float64{100, 150, 200}, grids[0].xs)
		require.Len(t, grids[0].ys, 2)
		assert.InDelta(t, 150.2, grids[0].ys[0], 0.01)
	})

	t.Run("lone lines are not a table", func(t *testing.T) {
		segs := []Segment{{0, 100, 500, 100}, {0, 200, 500, 200}}
		assert.Empty(t, findGrids(segs, rulingTolerance))
	})

	t.Run("single box is not a table", func(t *testing.T) {
		frame := gridSegments([]float64{20, 592}, []float64{20, 772})
		assert.Empty(t, findGrids(frame, rulingTolerance))
	})

	t.Run("grids ordered top to bottom", func(t *testing.T) {
		segs := append(gridSegments([]float64{0, 10, 20}, []float64{0, 10}), gridSegments([]float64{0, 10, 20}, []float64{100, 110})...)
		grids := findGrids(segs, rulingTolerance)
		require.Len(t, grids, 2)
		assert.Equal(t, 110.0, grids[0].ys[0])
		assert.Equal(t, 10.0, grids[1].ys[0])
	})
}

func TestPositional_Extract(t *testing.T) {
	pages := fakePages{
		1: concat(
			word(72, 750, 10, "Quarterly report for the sales team"),
			word(72, 700, 10, "Region"), word(200, 700, 10, "Q1"), word(300, 700, 10, "Q2"),
			word(72, 686, 10, "North"), word(200, 686, 10, "10"), word(300, 686, 10, "12"),
			word(72, 672, 10, "South"), word(200, 672, 10, "7"), word(300, 672, 10, "9"),
			word(72, 600, 10, "A closing paragraph."),
			word(72, 500, 10, "Lonely"), word(300, 500, 10, "row"),
		),
		2: concat(
			word(72, 700, 10, "Key"), word(200, 700, 10, "Value"),
			word(72, 688, 10, "alpha"), word(200, 688, 10, "1"),
		),
	}

	got, err := NewPositional().Extract(context.Background(), Input{Pages: pages})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Table 1-1", got[0].Label)
	assert.Equal(t, []string{"Region", "Q1", "Q2"}, got[0].Header)
	assert.Equal(t, [][]string{{"North", "10", "12"}, {"South", "7", "9"}}, got[0].Rows)

	assert.Equal(t, "Table 2-1", got[1].Label)
	assert.Equal(t, 2, got[1].Page)
	assert.Equal(t, []string{"Key", "Value"}, got[1].Header)
}

func TestPositional_ColumnCountChangeEndsTable(t *testing.T) {
	pages := fakePages{1: concat(
		word(72, 700, 10, "a"), word(200, 700, 10, "b"),
		word(72, 688, 10, "c"), word(200, 688, 10, "d"), word(300, 688, 10, "e"),
	)}
	got, err := NewPositional().Extract(context.Background(), Input{Pages: pages})
	require.NoError(t, err)
	assert.Empty(t, got)
}

type stubStrategy struct {
	name   string
	tables []Table
	err    error
	calls  int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Extract(context.Context, Input) ([]Table, error) {
	s.calls++
	return s.tables, s.err
}

func TestChain_Extract(t *testing.T) {
	latticeHit := []Table{{Label: "Table 1"}}
	positionalHit := []Table{{Label: "Table 1-1"}}

	tests := []struct {
		name           string
		lattice        *stubStrategy
		wantTables     []Table
		wantStrategy   string
		wantPositional int
	}{
		{
			name:           "lattice wins",
			lattice:        &stubStrategy{name: "lattice", tables: latticeHit},
			wantTables:     latticeHit,
			wantStrategy:   "lattice",
			wantPositional: 0,
		},
		{
			name:           "lattice empty falls back once",
			lattice:        &stubStrategy{name: "lattice"},
			wantTables:     positionalHit,
			wantStrategy:   "positional",
			wantPositional: 1,
		},
		{
			name:           "lattice error falls back",
			lattice:        &stubStrategy{name: "lattice", tables: latticeHit, err: errors.New("boom")},
			wantTables:     positionalHit,
			wantStrategy:   "positional",
			wantPositional: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			positional := &stubStrategy{name: "positional", tables: positionalHit}
			chain := Chain{tt.lattice, positional}
			got, name := chain.Extract(context.Background(), slog.Default(), Input{})
			assert.Equal(t, tt.wantTables, got)
			assert.Equal(t, tt.wantStrategy, name)
			assert.Equal(t, 1, tt.lattice.calls)
			assert.Equal(t, tt.wantPositional, positional.calls)
		})
	}
}

func TestChain_NothingFound(t *testing.T) {
	chain := Chain{&stubStrategy{name: "a"}, &stubStrategy{name: "b", err: errors.New("bad")}}
	got, name := chain.Extract(context.Background(), slog.Default(), Input{})
	assert.Empty(t, got)
	assert.Empty(t, name)
}

// TestDefaultChain_RuledPDF runs the real pdfcpu and text-layer readers over
// a generated PDF with a ruled table.
func TestDefaultChain_RuledPDF(t *testing.T) {
	xs := []float64{100, 250, 400}
	ys := []float64{600, 620, 640}
	data := testpdf.Build(testpdf.Page{
		Lines: testpdf.Grid(xs, ys),
		Texts: []testpdf.Text{
			{X: 105, Y: 625, Size: 10, S: "Item"},
			{X: 255, Y: 625, Size: 10, S: "Price"},
			{X: 105, Y: 605, Size: 10, S: "Widget"},
			{X: 255, Y: 605, Size: 10, S: "4.50"},
		},
	})
	path := filepath.Join(t.TempDir(), "ruled.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	doc, err := pdftext.Open(path)
	require.NoError(t, err)
	defer doc.Close()

	got, strategy := DefaultChain().Extract(context.Background(), slog.Default(), Input{Path: path, Pages: doc})
	require.Equal(t, "lattice", strategy)
	require.Len(t, got, 1)
	assert.Equal(t, [][]string{{"Item", "Price"}, {"Widget", "4.50"}}, got[0].Rows)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "content stream scratch dir must be removed")
}

// TestDefaultChain_FilledBackgroundFallsBack checks that a page background
// fill and a page frame do not count as a ruled table, so positional
// detection still gets its turn.
func TestDefaultChain_FilledBackgroundFallsBack(t *testing.T) {
	data := testpdf.Build(testpdf.Page{
		Raw:   "q 0.95 0.95 0.95 rg 0 0 612 792 re f Q\n0.5 w 20 20 572 752 re S",
		Texts: []testpdf.Text{{X: 72, Y: 700, Size: 10, S: "Just a paragraph of prose, no table here."}},
	})
	path := filepath.Join(t.TempDir(), "prose.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	doc, err := pdftext.Open(path)
	require.NoError(t, err)
	defer doc.Close()

	lattice := NewLattice(PdfcpuRulings{})
	found, err := lattice.Extract(context.Background(), Input{Path: path, Pages: doc})
	require.NoError(t, err)
	assert.Empty(t, found)

	got, strategy := DefaultChain().Extract(context.Background(), slog.Default(), Input{Path: path, Pages: doc})
	assert.Empty(t, got)
	assert.Empty(t, strategy)
}
