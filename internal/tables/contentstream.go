package tables

import (
	"bytes"
	"math"
	"strconv"
)

// Segment is a straight stroke in PDF user space.
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// matrix is a PDF transformation [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m followed by n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOperator
	tokOther
)

type token struct {
	kind tokenKind
	num  float64
	op   string
}

// lexer splits a content stream into operands and operators. Strings,
// names, dictionaries and arrays are reported as tokOther.
type lexer struct {
	data []byte
	pos  int
}

func isSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (l *lexer) next() (token, bool) {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case isSpace(c):
			l.pos++
		case c == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		case c == '(':
			l.skipString()
			return token{kind: tokOther}, true
		case c == '<':
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
				l.pos += 2
				return token{kind: tokOther}, true
			}
			end := bytes.IndexByte(l.data[l.pos:], '>')
			if end < 0 {
				l.pos = len(l.data)
			} else {
				l.pos += end + 1
			}
			return token{kind: tokOther}, true
		case c == '>':
			l.pos++
			if l.pos < len(l.data) && l.data[l.pos] == '>' {
				l.pos++
			}
			return token{kind: tokOther}, true
		case c == '[' || c == ']' || c == '{' || c == '}' || c == ')':
			l.pos++
			return token{kind: tokOther}, true
		case c == '/':
			l.pos++
			l.word()
			return token{kind: tokOther}, true
		default:
			w := l.word()
			if len(w) == 0 {
				l.pos++
				continue
			}
			if f, err := strconv.ParseFloat(string(w), 64); err == nil && isNumberStart(w[0]) {
				return token{kind: tokNumber, num: f}, true
			}
			return token{kind: tokOperator, op: string(w)}, true
		}
	}
	return token{}, false
}

func isNumberStart(c byte) bool {
	return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

func (l *lexer) word() []byte {
	start := l.pos
	for l.pos < len(l.data) && !isSpace(l.data[l.pos]) && !isDelim(l.data[l.pos]) {
		l.pos++
	}
	return l.data[start:l.pos]
}

// skipString consumes a literal string, honouring nesting and escapes.
func (l *lexer) skipString() {
	depth := 0
	for l.pos < len(l.data) {
		switch l.data[l.pos] {
		case '\\':
			l.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				l.pos++
				return
			}
		}
		l.pos++
	}
}

// skipInlineImage consumes everything up to and including the EI that ends
// an inline image's data.
func (l *lexer) skipInlineImage() {
	id := bytes.Index(l.data[l.pos:], []byte("ID"))
	if id < 0 {
		l.pos = len(l.data)
		return
	}
	l.pos += id + 2
	for l.pos < len(l.data) {
		ei := bytes.Index(l.data[l.pos:], []byte("EI"))
		if ei < 0 {
			l.pos = len(l.data)
			return
		}
		at := l.pos + ei
		l.pos = at + 2
		before := at == 0 || isSpace(l.data[at-1])
		after := l.pos >= len(l.data) || isSpace(l.data[l.pos])
		if before && after {
			return
		}
	}
}

// ParseRulings interprets a page content stream and returns the ruling
// lines it draws, transformed by the current matrix. Every straight segment
// of a stroked path is a ruling. A path that is only filled contributes just
// its thin rectangles, as their centre lines; wider fills such as page
// backgrounds and shaded boxes are not rulings. Curves only move the current
// point.
func ParseRulings(content []byte) []Segment {
	var (
		lx       = lexer{data: content}
		operands []float64
		ctm      = identity
		saved    []matrix
		path     []Segment
		rects    [][4][2]float64
		out      []Segment
		curX     float64
		curY     float64
		startX   float64
		startY   float64
	)
	// args returns the last n operands if they are all numbers.
	args := func(n int) ([]float64, bool) {
		if len(operands) < n {
			return nil, false
		}
		a := operands[len(operands)-n:]
		for _, v := range a {
			if math.IsNaN(v) {
				return nil, false
			}
		}
		return a, true
	}
	closePath := func() {
		if curX != startX || curY != startY {
			path = append(path, Segment{curX, curY, startX, startY})
		}
		curX, curY = startX, startY
	}

	for {
		tok, ok := lx.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokNumber:
			operands = append(operands, tok.num)
			continue
		case tokOther:
			operands = append(operands, math.NaN())
			continue
		}

		switch tok.op {
		case "q":
			saved = append(saved, ctm)
		case "Q":
			if len(saved) > 0 {
				ctm = saved[len(saved)-1]
				saved = saved[:len(saved)-1]
			}
		case "cm":
			if a, ok := args(6); ok {
				ctm = matrix{a[0], a[1], a[2], a[3], a[4], a[5]}.mul(ctm)
			}
		case "m":
			if a, ok := args(2); ok {
				curX, curY = ctm.apply(a[0], a[1])
				startX, startY = curX, curY
			}
		case "l":
			if a, ok := args(2); ok {
				x, y := ctm.apply(a[0], a[1])
				path = append(path, Segment{curX, curY, x, y})
				curX, curY = x, y
			}
		case "c":
			if a, ok := args(6); ok {
				curX, curY = ctm.apply(a[4], a[5])
			}
		case "v", "y":
			if a, ok := args(4); ok {
				curX, curY = ctm.apply(a[2], a[3])
			}
		case "h":
			closePath()
		case "re":
			if a, ok := args(4); ok {
				x, y, w, h := a[0], a[1], a[2], a[3]
				x0, y0 := ctm.apply(x, y)
				x1, y1 := ctm.apply(x+w, y)
				x2, y2 := ctm.apply(x+w, y+h)
				x3, y3 := ctm.apply(x, y+h)
				path = append(path,
					Segment{x0, y0, x1, y1},
					Segment{x1, y1, x2, y2},
					Segment{x2, y2, x3, y3},
					Segment{x3, y3, x0, y0},
				)
				rects = append(rects, [4][2]float64{{x0, y0}, {x1, y1}, {x2, y2}, {x3, y3}})
				curX, curY, startX, startY = x0, y0, x0, y0
			}
		case "s", "b", "b*":
			closePath()
			out = append(out, path...)
			path, rects = path[:0], rects[:0]
		case "S", "B", "B*":
			out = append(out, path...)
			path, rects = path[:0], rects[:0]
		case "f", "F", "f*":
			for _, r := range rects {
				if seg, ok := thinRect(r); ok {
					out = append(out, seg)
				}
			}
			path, rects = path[:0], rects[:0]
		case "n":
			path, rects = path[:0], rects[:0]
		case "BI":
			lx.skipInlineImage()
		}
		operands = operands[:0]
	}
	return out
}

// thinRect returns the centre line of a filled rectangle no thicker than
// rulingTolerance.
func thinRect(corners [4][2]float64) (Segment, bool) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		minX, maxX = min(minX, c[0]), max(maxX, c[0])
		minY, maxY = min(minY, c[1]), max(maxY, c[1])
	}
	w, h := maxX-minX, maxY-minY
	switch {
	case h <= rulingTolerance && w > h:
		y := (minY + maxY) / 2
		return Segment{minX, y, maxX, y}, true
	case w <= rulingTolerance && h > w:
		x := (minX + maxX) / 2
		return Segment{x, minY, x, maxY}, true
	}
	return Segment{}, false
}
