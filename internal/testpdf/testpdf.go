// Package testpdf writes small, valid, uncompressed PDFs for tests: text
// placed at fixed positions in a monospaced standard font, stroked lines and
// rectangles.
package testpdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// CharWidth is the advance of every glyph, in thousandths of the font size.
const CharWidth = 600

// Text is a string drawn with its baseline origin at (X, Y).
type Text struct {
	X, Y float64
	Size float64
	S    string
}

// Line is a stroked segment.
type Line struct {
	X1, Y1, X2, Y2 float64
}

// Rect is a stroked rectangle with its lower-left corner at (X, Y).
type Rect struct {
	X, Y, W, H float64
}

// Page is one 612x792 page. Raw is appended to the content stream verbatim.
// Differences, when set, gives the page its own /F1 whose encoding is
// WinAnsi patched with this /Differences array body, e.g. "65 /Z 66 /Y".
type Page struct {
	Texts       []Text
	Lines       []Line
	Rects       []Rect
	Raw         string
	Differences string
}

// Build serializes pages into a complete PDF file.
func Build(pages ...Page) []byte {
	if len(pages) == 0 {
		pages = []Page{{}}
	}

	var objects []string
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		fontObject("/WinAnsiEncoding"),
	)
	var pageFonts []string
	for i, p := range pages {
		font := 3
		if p.Differences != "" {
			font = 4 + 2*len(pages) + len(pageFonts)
			pageFonts = append(pageFonts, fontObject(fmt.Sprintf("<< /Type /Encoding /BaseEncoding /WinAnsiEncoding /Differences [%s] >>", p.Differences)))
		}
		content := p.content()
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", font, 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects = append(objects, pageFonts...)

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func fontObject(encoding string) string {
	widths := make([]string, 126-32+1)
	for i := range widths {
		widths[i] = strconv.Itoa(CharWidth)
	}
	return fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Courier /Encoding %s /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		encoding, strings.Join(widths, " "))
}

func (p Page) content() string {
	var b strings.Builder
	for _, l := range p.Lines {
		fmt.Fprintf(&b, "0.5 w %s %s m %s %s l S\n", num(l.X1), num(l.Y1), num(l.X2), num(l.Y2))
	}
	for _, r := range p.Rects {
		fmt.Fprintf(&b, "0.5 w %s %s %s %s re S\n", num(r.X), num(r.Y), num(r.W), num(r.H))
	}
	for _, t := range p.Texts {
		size := t.Size
		if size == 0 {
			size = 10
		}
		fmt.Fprintf(&b, "BT /F1 %s Tf %s %s Td (%s) Tj ET\n", num(size), num(t.X), num(t.Y), escape(t.S))
	}
	b.WriteString(p.Raw)
	return strings.TrimRight(b.String(), "\n")
}

// Grid returns the ruling lines of a table with the given column and row
// boundaries. xs run left to right, ys bottom to top.
func Grid(xs, ys []float64) []Line {
	var lines []Line
	for _, x := range xs {
		lines = append(lines, Line{X1: x, Y1: ys[0], X2: x, Y2: ys[len(ys)-1]})
	}
	for _, y := range ys {
		lines = append(lines, Line{X1: xs[0], Y1: y, X2: xs[len(xs)-1], Y2: y})
	}
	return lines
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
