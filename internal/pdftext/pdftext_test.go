package pdftext

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/testpdf"
)

const longLine = "Hello World, this page carries a real text layer for routing."

func TestHasTextLayer(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{
			name: "long text",
			data: testpdf.Build(testpdf.Page{Texts: []testpdf.Text{{X: 72, Y: 700, S: longLine}}}),
			want: true,
		},
		{
			name: "text split across pages",
			data: testpdf.Build(
				testpdf.Page{Texts: []testpdf.Text{{X: 72, Y: 700, S: strings.Repeat("a", 30)}}},
				testpdf.Page{Texts: []testpdf.Text{{X: 72, Y: 700, S: strings.Repeat("b", 30)}}},
			),
			want: true,
		},
		{
			name: "exactly the threshold",
			data: testpdf.Build(testpdf.Page{Texts: []testpdf.Text{{X: 72, Y: 700, S: strings.Repeat("x ", 50)}}}),
			want: false,
		},
		{
			name: "blank page",
			data: testpdf.Build(testpdf.Page{}),
			want: false,
		},
		{
			name: "not a pdf",
			data: []byte("this is not a pdf at all"),
			want: false,
		},
		{
			name: "empty",
			data: nil,
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasTextLayer(tt.data))
		})
	}
}

func TestCountNonSpace(t *testing.T) {
	assert.Equal(t, 0, CountNonSpace(" \n\t "))
	assert.Equal(t, 10, CountNonSpace("Hello World"))
	assert.Equal(t, 4, CountNonSpace("表格 内容"))
}

func TestDocument_PageTextAndGlyphs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, testpdf.Build(
		testpdf.Page{Texts: []testpdf.Text{{X: 72, Y: 700, Size: 10, S: "AB"}}},
		testpdf.Page{Texts: []testpdf.Text{{X: 100, Y: 500, Size: 10, S: "Second"}}},
	), 0o600))

	doc, err := Open(path)
	require.NoError(t, err)
	defer doc.Close()

	require.Equal(t, 2, doc.NumPages())

	text, err := doc.PageText(2)
	require.NoError(t, err)
	assert.Contains(t, text, "Second")

	glyphs, err := doc.PageGlyphs(1)
	require.NoError(t, err)
	require.Len(t, glyphs, 2)
	assert.Equal(t, "A", glyphs[0].S)
	assert.InDelta(t, 72, glyphs[0].X, 0.01)
	assert.InDelta(t, 700, glyphs[0].Y, 0.01)
	assert.InDelta(t, 6, glyphs[0].W, 0.01)
	assert.InDelta(t, 10, glyphs[0].FontSize, 0.01)
	assert.InDelta(t, 78, glyphs[1].X, 0.01)

	_, err = doc.PageText(3)
	require.ErrorIs(t, err, ErrNoPage)
}

func TestDocument_PageTextUsesEachPagesFont(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fonts.pdf")
	require.NoError(t, os.WriteFile(path, testpdf.Build(
		testpdf.Page{Texts: []testpdf.Text{{X: 72, Y: 700, S: "AB"}}},
		testpdf.Page{Texts: []testpdf.Text{{X: 72, Y: 700, S: "AB"}}, Differences: "65 /Z 66 /Y"},
	), 0o600))

	alone, err := Open(path)
	require.NoError(t, err)
	defer alone.Close()
	want, err := alone.PageText(2)
	require.NoError(t, err)
	assert.Contains(t, want, "ZY")

	doc, err := Open(path)
	require.NoError(t, err)
	defer doc.Close()
	first, err := doc.PageText(1)
	require.NoError(t, err)
	assert.Contains(t, first, "AB")
	second, err := doc.PageText(2)
	require.NoError(t, err)
	assert.Equal(t, want, second, "page 2 must be decoded with its own /F1")
}

func TestOpen_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\ngarbage"), 0o600))
	_, err := Open(path)
	require.Error(t, err)
}
