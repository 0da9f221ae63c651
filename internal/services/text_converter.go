package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/models"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/pdftext"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/server"
	"github.com/Lllllllleong/pdfmarkdownflow/internal/tables"
)

// NoTextContentMessage replaces both sections when a document yields
// neither text nor tables.
const NoTextContentMessage = "No valid content could be extracted, please check the PDF file."

var blankLinesRe = regexp.MustCompile(`\n\s*\n`)

// TextConverterFunction builds Markdown from PDFs that have a text layer.
type TextConverterFunction struct {
	config ConverterConfig
	tables tables.Chain
}

// NewTextConverter creates a new TextConverterFunction from the environment.
func NewTextConverter(ctx context.Context) (*TextConverterFunction, error) {
	config, err := loadConverterConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load converter config: %w", err)
	}
	chain := tables.DefaultChain()
	names := make([]string, len(chain))
	for i, s := range chain {
		names[i] = s.Name()
	}
	slog.Info("Text converter logic initialized.", "tableStrategies", names)
	return NewTextConverterWith(config, chain), nil
}

// NewTextConverterWith builds a converter with an explicit strategy chain.
func NewTextConverterWith(config ConverterConfig, chain tables.Chain) *TextConverterFunction {
	return &TextConverterFunction{config: config, tables: chain}
}

// Handler returns the converter's HTTP surface.
func (f *TextConverterFunction) Handler() http.Handler {
	return server.NewRouter(server.RouterConfig{
		Service:        "Text extraction service",
		ConvertPaths:   []string{"/convert"},
		Convert:        convertHandler(f.config.MaxUploadBytes, f.Convert),
		AllowedOrigins: f.config.AllowedOrigins,
	})
}

// Convert writes the upload to a scratch file, extracts page text and
// tables, and assembles the Markdown document.
func (f *TextConverterFunction) Convert(ctx context.Context, up *models.Upload) (string, error) {
	logCtx := slog.With("conversionId", uuid.NewString(), "filename", up.Filename)
	logCtx.Info("Starting text extraction.", "size", humanize.Bytes(uint64(len(up.Data))))

	var markdown string
	err := withTempPDF(f.config.TempDir, "text-converter-*", up.Data, func(path string) error {
		doc, err := pdftext.Open(path)
		if err != nil {
			return err
		}
		defer doc.Close()

		pages := pageFragments(logCtx, doc)
		found, _ := f.tables.Extract(ctx, logCtx, tables.Input{Path: path, Pages: doc})
		markdown = textDocument(up.Filename, pages, tableFragments(logCtx, found))
		return nil
	})
	if err != nil {
		logCtx.Error("Text extraction failed", "error", err)
		return "", err
	}
	logCtx.Info("Text extraction complete.", "markdownSize", humanize.Bytes(uint64(len(markdown))))
	return markdown, nil
}

type pageTextReader interface {
	NumPages() int
	PageText(n int) (string, error)
}

// pageFragments returns one "### Page N" section per page with text, in
// page order. Pages that fail to read are logged and skipped.
func pageFragments(logCtx *slog.Logger, doc pageTextReader) []string {
	var fragments []string
	for n := 1; n <= doc.NumPages(); n++ {
		text, err := doc.PageText(n)
		if err != nil {
			logCtx.Warn("Skipping unreadable page", "page", n, "error", err)
			continue
		}
		text = strings.TrimSpace(blankLinesRe.ReplaceAllString(text, "\n\n"))
		if text == "" {
			continue
		}
		fragments = append(fragments, fmt.Sprintf("### Page %d\n\n%s\n", n, text))
	}
	return fragments
}

func tableFragments(logCtx *slog.Logger, found []tables.Table) []string {
	var fragments []string
	for _, t := range found {
		md, err := tables.Markdown(t)
		if err != nil {
			logCtx.Warn("Skipping table that failed to render", "table", t.Label, "error", err)
			continue
		}
		fragments = append(fragments, fmt.Sprintf("### %s\n\n%s\n", t.Label, md))
	}
	return fragments
}

func textDocument(filename string, pages, tableMDs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", filename)
	if len(pages) > 0 {
		b.WriteString("## Text Content\n\n")
		b.WriteString(strings.Join(pages, "\n"))
		b.WriteString("\n\n")
	}
	if len(tableMDs) > 0 {
		b.WriteString("## Table Content\n\n")
		b.WriteString(strings.Join(tableMDs, "\n"))
	}
	if len(pages) == 0 && len(tableMDs) == 0 {
		b.WriteString(NoTextContentMessage + "\n")
	}
	return b.String()
}
