// Package ocr turns scanned pages into text: page rasterization, line
// recognition with confidence filtering, and the layout engine contract
// used to find table regions.
package ocr

import (
	"context"
	"strings"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/models"
)

// DefaultMinConfidence is the confidence a line must exceed to be kept.
const DefaultMinConfidence = 0.5

// Line is one recognized text line. Confidence is in [0, 1].
type Line struct {
	Text       string
	Confidence float64
}

// Engine recognizes text lines in a PNG image, in reading order.
type Engine interface {
	Recognize(ctx context.Context, png []byte) ([]Line, error)
}

// LayoutEngine finds the regions of a PNG page image.
type LayoutEngine interface {
	DetectLayout(ctx context.Context, png []byte) ([]models.LayoutRegion, error)
}

// Rasterizer renders every page of a PDF to PNG at scale times its native
// 72 DPI resolution. On error it may still return the leading pages it
// rendered.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, scale float64) ([][]byte, error)
}

// FilterLines keeps the lines whose confidence is strictly greater than
// minConfidence and joins them with newlines, preserving their order.
func FilterLines(lines []Line, minConfidence float64) string {
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Confidence > minConfidence {
			kept = append(kept, l.Text)
		}
	}
	return strings.Join(kept, "\n")
}

// TableRegions returns the content of every table region that has any.
func TableRegions(regions []models.LayoutRegion) []string {
	var out []string
	for _, r := range regions {
		if r.Type == models.RegionTable && strings.TrimSpace(r.Content) != "" {
			out = append(out, r.Content)
		}
	}
	return out
}
