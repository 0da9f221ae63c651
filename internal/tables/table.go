// Package tables finds tables in a PDF with a text layer. Strategies are
// tried in order and the first one that finds anything wins.
package tables

import (
	"context"
	"log/slog"

	"github.com/Lllllllleong/pdfmarkdownflow/internal/pdftext"
)

// Table is one detected table. Header may be empty.
type Table struct {
	Label  string
	Page   int
	Header []string
	Rows   [][]string
}

// GlyphSource gives access to the positioned text of each page.
// *pdftext.Document satisfies it.
type GlyphSource interface {
	NumPages() int
	PageGlyphs(n int) ([]pdftext.Glyph, error)
}

// Input is the document a strategy works on.
type Input struct {
	// Path is the PDF on disk, for strategies that read the file directly.
	Path  string
	Pages GlyphSource
}

// Strategy is one table-detection technique.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, in Input) ([]Table, error)
}

// Chain is an ordered list of strategies.
type Chain []Strategy

// DefaultChain is lattice detection followed by positional detection.
func DefaultChain() Chain {
	return Chain{NewLattice(PdfcpuRulings{}), NewPositional()}
}

// Extract runs the strategies in order and returns the tables of the first
// one that finds any, with that strategy's name. A failing strategy is
// logged and treated as having found nothing.
func (c Chain) Extract(ctx context.Context, logCtx *slog.Logger, in Input) ([]Table, string) {
	for _, s := range c {
		if err := ctx.Err(); err != nil {
			logCtx.Warn("Table extraction cancelled.", "error", err)
			return nil, ""
		}
		found, err := s.Extract(ctx, in)
		if err != nil {
			logCtx.Warn("Table strategy failed, treating as zero tables.", "strategy", s.Name(), "error", err)
			continue
		}
		if len(found) > 0 {
			logCtx.Info("Tables extracted.", "strategy", s.Name(), "count", len(found))
			return found, s.Name()
		}
		logCtx.Info("Table strategy found no tables.", "strategy", s.Name())
	}
	return nil, ""
}
