// Package pdftext reads the embedded text layer of a PDF: plain text per
// page, positioned glyphs for table detection, and the native-text check the
// gateway routes on.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// NativeTextThreshold is the number of non-whitespace characters a document
// must exceed to count as having a text layer.
const NativeTextThreshold = 50

// ErrNoPage is returned for a page number outside the document or a page
// object that cannot be resolved.
var ErrNoPage = errors.New("page not found")

// Glyph is one positioned string from a page's content stream, in PDF user
// space (origin bottom left).
type Glyph struct {
	X, Y     float64
	W        float64
	FontSize float64
	S        string
}

// Document is an open PDF. Pages are numbered from 1.
type Document struct {
	file   *os.File
	reader *pdf.Reader
}

// Open parses the PDF at path. The parser panics on some malformed input;
// that is reported as an error.
func Open(path string) (doc *Document, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer func() {
		if doc == nil {
			f.Close()
		}
	}()
	defer recoverInto(&err, "open pdf")

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat pdf %s: %w", path, err)
	}
	r, err := pdf.NewReader(f, fi.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	return &Document{file: f, reader: r}, nil
}

// OpenBytes parses an in-memory PDF.
func OpenBytes(data []byte) (doc *Document, err error) {
	defer recoverInto(&err, "open pdf")
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	return &Document{reader: r}, nil
}

func (d *Document) NumPages() int {
	return d.reader.NumPage()
}

func (d *Document) page(n int) (pdf.Page, error) {
	if n < 1 || n > d.reader.NumPage() {
		return pdf.Page{}, fmt.Errorf("page %d: %w", n, ErrNoPage)
	}
	p := d.reader.Page(n)
	if p.V.IsNull() {
		return pdf.Page{}, fmt.Errorf("page %d: %w", n, ErrNoPage)
	}
	return p, nil
}

// PageText returns the plain text of page n.
func (d *Document) PageText(n int) (text string, err error) {
	defer recoverInto(&err, fmt.Sprintf("read page %d", n))
	p, err := d.page(n)
	if err != nil {
		return "", err
	}
	// Font resource names are scoped to the page: /F1 on one page may be a
	// different font object than /F1 on the next.
	fonts := make(map[string]*pdf.Font)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		fonts[name] = &f
	}
	text, err = p.GetPlainText(fonts)
	if err != nil {
		return "", fmt.Errorf("failed to read page %d: %w", n, err)
	}
	return text, nil
}

// PageGlyphs returns the non-blank glyphs of page n in content-stream order.
func (d *Document) PageGlyphs(n int) (glyphs []Glyph, err error) {
	defer recoverInto(&err, fmt.Sprintf("read glyphs of page %d", n))
	p, err := d.page(n)
	if err != nil {
		return nil, err
	}
	content := p.Content()
	glyphs = make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
	}
	return glyphs, nil
}

// Close releases the underlying file, if any.
func (d *Document) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// HasTextLayer reports whether the concatenated text of every page has more
// than NativeTextThreshold non-whitespace characters. Any parse failure
// counts as no text layer.
func HasTextLayer(data []byte) (native bool) {
	defer func() {
		if r := recover(); r != nil {
			native = false
		}
	}()
	doc, err := OpenBytes(data)
	if err != nil {
		return false
	}
	defer doc.Close()

	count := 0
	for i := 1; i <= doc.NumPages(); i++ {
		text, err := doc.PageText(i)
		if err != nil {
			if errors.Is(err, ErrNoPage) {
				continue
			}
			return false
		}
		count += CountNonSpace(text)
		if count > NativeTextThreshold {
			return true
		}
	}
	return false
}

// CountNonSpace counts the runes of s that are not whitespace.
func CountNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func recoverInto(err *error, op string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("failed to %s: pdf parser panic: %v", op, r)
	}
}
