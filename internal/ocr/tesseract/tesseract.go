// Package tesseract is the Tesseract-backed ocr.Engine. It links the
// native library through gosseract, so it lives apart from package ocr.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/ocr"
)

// Engine recognizes text lines with Tesseract. Each call gets its own
// client, so one engine can serve concurrent requests.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewEngine builds the engine and runs one recognition on a blank image to
// make sure the native library and language data load.
func NewEngine(languages []string) (*Engine, error) {
	e := &Engine{languages: languages, clientFactory: gosseract.NewClient}
	if _, err := e.Recognize(context.Background(), blankPNG()); err != nil {
		return nil, fmt.Errorf("tesseract probe failed: %w", err)
	}
	return e, nil
}

// Load is NewEngine typed for services.EngineLoader.
func Load(languages []string) (ocr.Engine, error) {
	e, err := NewEngine(languages)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) Recognize(ctx context.Context, img []byte) ([]ocr.Line, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize lines: %w", err)
	}
	lines := make([]ocr.Line, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, ocr.Line{Text: text, Confidence: b.Confidence / 100.0})
	}
	return lines, nil
}

func blankPNG() []byte {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = color.White.Y
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
