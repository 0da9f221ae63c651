package ocr

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/models"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/testpdf"
)

func TestFilterLines(t *testing.T) {
	lines := []Line{
		{Text: "first", Confidence: 0.93},
		{Text: "noise", Confidence: 0.5},
		{Text: "second", Confidence: 0.51},
		{Text: "blur", Confidence: 0.12},
		{Text: "third", Confidence: 1},
	}
	assert.Equal(t, "first\nsecond\nthird", FilterLines(lines, DefaultMinConfidence))
	assert.Empty(t, FilterLines(lines[1:2], DefaultMinConfidence))
	assert.Empty(t, FilterLines(nil, DefaultMinConfidence))
}

func TestTableRegions(t *testing.T) {
	regions := []models.LayoutRegion{
		{Type: "title", Content: ""},
		{Type: "table", Content: "<table><tr><td>a</td></tr></table>"},
		{Type: "table", Content: "  "},
		{Type: "figure", Content: "ignored"},
		{Type: "table", Content: "second"},
	}
	assert.Equal(t, []string{"<table><tr><td>a</td></tr></table>", "second"}, TableRegions(regions))
}

func TestFitzRasterizer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, testpdf.Build(
		testpdf.Page{Texts: []testpdf.Text{{X: 72, Y: 700, S: "page one"}}},
		testpdf.Page{},
	), 0o600))

	pages, err := FitzRasterizer{}.Rasterize(context.Background(), path, 2.0)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	img, err := png.Decode(bytes.NewReader(pages[0]))
	require.NoError(t, err)
	assert.InDelta(t, 1224, img.Bounds().Dx(), 1)
	assert.InDelta(t, 1584, img.Bounds().Dy(), 1)
}

func TestFitzRasterizer_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))
	_, err := FitzRasterizer{}.Rasterize(context.Background(), path, 2.0)
	require.Error(t, err)
}
