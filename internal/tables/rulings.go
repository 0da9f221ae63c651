package tables

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// RulingSource returns the stroked segments of each page, keyed by page
// number. Pages without drawing may be absent.
type RulingSource interface {
	PageRulings(ctx context.Context, path string) (map[int][]Segment, error)
}

// PdfcpuRulings decodes page content streams with pdfcpu and reads the
// ruling lines out of them.
type PdfcpuRulings struct{}

var contentFileRe = regexp.MustCompile(`_page_(\d+)\.txt$`)

func (PdfcpuRulings) PageRulings(ctx context.Context, path string) (rulings map[int][]Segment, err error) {
	outDir, err := os.MkdirTemp(filepath.Dir(path), "content-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create content dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := extractContent(path, outDir); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list content streams: %w", err)
	}
	rulings = make(map[int][]Segment)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := contentFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		page, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read content stream of page %d: %w", page, err)
		}
		rulings[page] = append(rulings[page], ParseRulings(data)...)
	}
	return rulings, nil
}

func extractContent(path, outDir string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu panic while extracting content: %v", r)
		}
	}()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractContentFile(path, outDir, nil, conf); err != nil {
		return fmt.Errorf("failed to extract content streams: %w", err)
	}
	return nil
}
