package ocr

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// nativeDPI is the resolution of one PDF user-space unit.
const nativeDPI = 72.0

// FitzRasterizer renders pages with MuPDF. When a page fails to render,
// the pages before it are returned together with the error.
type FitzRasterizer struct{}

func (FitzRasterizer) Rasterize(ctx context.Context, path string, scale float64) (pages [][]byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mupdf panic while rasterizing: %v", r)
		}
	}()

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf for rasterizing: %w", err)
	}
	defer doc.Close()

	dpi := nativeDPI * scale
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImagePNG(n, dpi)
		if err != nil {
			return pages, fmt.Errorf("failed to rasterize page %d: %w", n+1, err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}
