package tables

import (
	"math"
	"sort"
	"strings"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/pdftext"
)

// wordGapRatio is the gap, as a fraction of the font size, above which two
// glyphs on a line are separate words.
const wordGapRatio = 0.2

// textLine is a run of glyphs sharing a baseline, sorted left to right.
type textLine struct {
	y      float64
	size   float64
	glyphs []pdftext.Glyph
}

// span is a horizontal run of text on one line.
type span struct {
	x1, x2 float64
	text   string
}

// groupLines buckets glyphs by baseline and returns the lines top to bottom.
func groupLines(glyphs []pdftext.Glyph, tolerance float64) []textLine {
	var lines []textLine
	for _, g := range glyphs {
		found := false
		for i := range lines {
			if math.Abs(g.Y-lines[i].y) <= tolerance {
				lines[i].glyphs = append(lines[i].glyphs, g)
				lines[i].size = max(lines[i].size, g.FontSize)
				found = true
				break
			}
		}
		if !found {
			lines = append(lines, textLine{y: g.Y, size: g.FontSize, glyphs: []pdftext.Glyph{g}})
		}
	}
	for i := range lines {
		gs := lines[i].glyphs
		sort.SliceStable(gs, func(a, b int) bool { return gs[a].X < gs[b].X })
	}
	sort.SliceStable(lines, func(a, b int) bool { return lines[a].y > lines[b].y })
	return lines
}

// splitSpans cuts a sorted line into spans wherever the horizontal gap is
// wider than minGap. Narrower word gaps become single spaces.
func splitSpans(glyphs []pdftext.Glyph, minGap float64) []span {
	var (
		spans []span
		cur   *span
		b     strings.Builder
	)
	flush := func() {
		if cur != nil {
			cur.text = b.String()
			spans = append(spans, *cur)
			b.Reset()
		}
	}
	for _, g := range glyphs {
		if cur != nil {
			gap := g.X - cur.x2
			if gap > minGap {
				flush()
				cur = nil
			} else if gap > wordGapRatio*g.FontSize {
				b.WriteByte(' ')
			}
		}
		if cur == nil {
			cur = &span{x1: g.X, x2: g.X + g.W}
		}
		b.WriteString(g.S)
		cur.x2 = max(cur.x2, g.X+g.W)
	}
	flush()
	return spans
}

// joinGlyphs renders glyphs as text: lines top to bottom separated by
// spaces, words separated by single spaces.
func joinGlyphs(glyphs []pdftext.Glyph) string {
	var parts []string
	for _, l := range groupLines(glyphs, lineTolerance(glyphs)) {
		for _, s := range splitSpans(l.glyphs, math.Inf(1)) {
			parts = append(parts, s.text)
		}
	}
	return strings.Join(parts, " ")
}

func lineTolerance(glyphs []pdftext.Glyph) float64 {
	size := 0.0
	for _, g := range glyphs {
		size = max(size, g.FontSize)
	}
	return max(size*0.3, 1)
}
