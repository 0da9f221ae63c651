package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/gcp"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/models"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/ocr"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/server"
)

const (
	// NoOCRContentMessage is appended when no page produced text or tables.
	NoOCRContentMessage = "No valid content was recognized, please check the PDF quality."
	// RasterFailedMessage is the whole body when no page could be rendered.
	RasterFailedMessage = "Could not convert the PDF to images, please check the file format."
	// EngineNotLoadedText stands in for page text when the OCR engine failed
	// to load at startup.
	EngineNotLoadedText = "OCR engine not loaded"
)

// OCRConverterConfig holds configuration for the OCR converter service.
type OCRConverterConfig struct {
	ConverterConfig
	Languages     []string
	MinConfidence float64
	RasterScale   float64
	Vertex        gcp.VertexConfig
}

// EngineLoader builds the OCR engine for the given languages.
type EngineLoader func(languages []string) (ocr.Engine, error)

// OCRConverterFunction builds Markdown from scanned PDFs. The engines are
// built once and shared by every request; a nil engine means it failed to
// load.
type OCRConverterFunction struct {
	config     OCRConverterConfig
	engine     ocr.Engine
	layout     ocr.LayoutEngine
	rasterizer ocr.Rasterizer
}

// LoadOCRConverterConfig reads the OCR converter settings from the
// environment.
func LoadOCRConverterConfig() (OCRConverterConfig, error) {
	base, err := loadConverterConfig()
	if err != nil {
		return OCRConverterConfig{}, err
	}
	minConf, err := gcp.GetEnvFloat("OCR_MIN_CONFIDENCE", ocr.DefaultMinConfidence, 0, 1)
	if err != nil {
		return OCRConverterConfig{}, err
	}
	scale, err := gcp.GetEnvFloat("RASTER_SCALE", 2.0, 0.25, 8)
	if err != nil {
		return OCRConverterConfig{}, err
	}
	return OCRConverterConfig{
		ConverterConfig: base,
		Languages:       gcp.GetEnvList("OCR_LANGUAGES", []string{"eng"}),
		MinConfidence:   minConf,
		RasterScale:     scale,
		Vertex:          gcp.LoadVertexConfig(),
	}, nil
}

// NewOCRConverter creates a new OCRConverterFunction. Engines that fail to
// load are logged and left nil so the service keeps answering requests.
func NewOCRConverter(ctx context.Context, loadEngine EngineLoader) (*OCRConverterFunction, error) {
	config, err := LoadOCRConverterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load OCR converter config: %w", err)
	}

	var engine ocr.Engine
	if e, err := loadEngine(config.Languages); err != nil {
		slog.Warn("OCR engine failed to load; pages will carry a placeholder.", "error", err, "languages", config.Languages)
	} else {
		engine = e
	}

	var layout ocr.LayoutEngine
	if config.Vertex.ProjectID == "" {
		slog.Info("PROJECT_ID not set; layout detection disabled.")
	} else if vc, err := gcp.NewVertexClient(ctx, config.Vertex); err != nil {
		slog.Warn("Layout engine failed to load; no tables will be detected.", "error", err)
	} else {
		layout = vc
	}

	slog.Info("OCR converter logic initialized.",
		"ocrEngine", engine != nil,
		"layoutEngine", layout != nil,
		"rasterScale", config.RasterScale,
	)
	return NewOCRConverterWith(config, engine, layout, ocr.FitzRasterizer{}), nil
}

// NewOCRConverterWith builds a converter from explicit engines. engine and
// layout may be nil.
func NewOCRConverterWith(config OCRConverterConfig, engine ocr.Engine, layout ocr.LayoutEngine, rasterizer ocr.Rasterizer) *OCRConverterFunction {
	if config.RasterScale <= 0 {
		config.RasterScale = 2.0
	}
	return &OCRConverterFunction{config: config, engine: engine, layout: layout, rasterizer: rasterizer}
}

// Handler returns the converter's HTTP surface.
func (f *OCRConverterFunction) Handler() http.Handler {
	return server.NewRouter(server.RouterConfig{
		Service:        "OCR service",
		ConvertPaths:   []string{"/convert"},
		Convert:        convertHandler(f.config.MaxUploadBytes, f.Convert),
		AllowedOrigins: f.config.AllowedOrigins,
	})
}

// Convert rasterizes every page, recognizes text and table regions page by
// page, and assembles the Markdown document.
func (f *OCRConverterFunction) Convert(ctx context.Context, up *models.Upload) (string, error) {
	logCtx := slog.With("conversionId", uuid.NewString(), "filename", up.Filename)
	logCtx.Info("Starting OCR conversion.", "size", humanize.Bytes(uint64(len(up.Data))))

	var markdown string
	err := withTempPDF(f.config.TempDir, "ocr-converter-*", up.Data, func(path string) error {
		images, err := f.rasterizer.Rasterize(ctx, path, f.config.RasterScale)
		if err != nil {
			logCtx.Error("Failed to rasterize PDF", "error", err)
		}
		if len(images) == 0 {
			markdown = fmt.Sprintf("# %s\n\n%s\n", up.Filename, RasterFailedMessage)
			return nil
		}
		logCtx.Info("Rasterized PDF.", "pages", len(images))

		fragments := make([]string, len(images))
		anyContent := false
		for i, img := range images {
			var hasContent bool
			fragments[i], hasContent = f.pageFragment(ctx, logCtx.With("page", i+1), i+1, img)
			anyContent = anyContent || hasContent
		}
		markdown = ocrDocument(up.Filename, fragments, anyContent)
		return nil
	})
	if err != nil {
		logCtx.Error("OCR conversion failed", "error", err)
		return "", err
	}
	logCtx.Info("OCR conversion complete.", "markdownSize", humanize.Bytes(uint64(len(markdown))))
	return markdown, nil
}

// pageFragment renders one page and reports whether it carried any text or
// tables.
func (f *OCRConverterFunction) pageFragment(ctx context.Context, logCtx *slog.Logger, n int, img []byte) (string, bool) {
	text := strings.TrimSpace(f.recognize(ctx, logCtx, img))
	tableContents := f.detectTables(ctx, logCtx, img)

	var b strings.Builder
	fmt.Fprintf(&b, "### Page %d\n\n", n)
	if text != "" {
		fmt.Fprintf(&b, "#### Text Content\n\n%s\n\n", text)
	}
	if len(tableContents) > 0 {
		b.WriteString("#### Table Content\n\n")
		for i, content := range tableContents {
			fmt.Fprintf(&b, "**Table %d:**\nTable content: %s\n\n", i+1, content)
		}
	}
	return b.String(), text != "" || len(tableContents) > 0
}

func (f *OCRConverterFunction) recognize(ctx context.Context, logCtx *slog.Logger, img []byte) string {
	if f.engine == nil {
		return EngineNotLoadedText
	}
	lines, err := f.engine.Recognize(ctx, img)
	if err != nil {
		logCtx.Error("OCR failed for page", "error", err)
		return ""
	}
	return ocr.FilterLines(lines, f.config.MinConfidence)
}

func (f *OCRConverterFunction) detectTables(ctx context.Context, logCtx *slog.Logger, img []byte) []string {
	if f.layout == nil {
		return nil
	}
	regions, err := f.layout.DetectLayout(ctx, img)
	if err != nil {
		logCtx.Error("Layout detection failed for page", "error", err)
		return nil
	}
	return ocr.TableRegions(regions)
}

func ocrDocument(filename string, fragments []string, anyContent bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", filename)
	b.WriteString("## OCR Results\n\n")
	b.WriteString(strings.Join(fragments, "\n"))
	if !anyContent {
		b.WriteString(NoOCRContentMessage + "\n")
	}
	return b.String()
}
