package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/sniffer"
)

const (
	StrategyTableGrid  = "table-grid"
	StrategyHeavyTable = "heavy-table"
)

// GridStrategy reconstructs statement tables from positioned cells: a
// header line fixes the column spans and every later cell is assigned to the
// column it overlaps most. The header carries over to following pages.
type GridStrategy struct {
	name   string
	open   Opener
	logger *slog.Logger
	// lineFallback parses pages without a table with the text-line heuristics.
	lineFallback    bool
	minAmountTokens int
}

// NewTableGridStrategy reads positioned text with the native reader.
func NewTableGridStrategy(open Opener, logger *slog.Logger) *GridStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &GridStrategy{name: StrategyTableGrid, open: open, logger: logger, minAmountTokens: DefaultMinAmountTokens}
}

// NewHeavyTableStrategy reads MuPDF layout text. Pages where no table header
// is found fall back to line parsing of the same text.
func NewHeavyTableStrategy(open Opener, logger *slog.Logger) *GridStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &GridStrategy{
		name:            StrategyHeavyTable,
		open:            open,
		logger:          logger,
		lineFallback:    true,
		minAmountTokens: DefaultMinAmountTokens,
	}
}

// WithMinAmountTokens sets the amount requirement of the line fallback.
func (s *GridStrategy) WithMinAmountTokens(n int) *GridStrategy {
	if n >= 1 {
		s.minAmountTokens = n
	}
	return s
}

func (s *GridStrategy) Name() string { return s.name }

func (s *GridStrategy) Extract(ctx context.Context, path string) (*Extraction, error) {
	doc, err := s.open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	file := fileName(path)
	out := &Extraction{}
	grid := &gridParser{}
	pages := doc.NumPages()
	failed := 0
	var lastErr error

	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lines, err := doc.PageLines(page)
		if err != nil {
			failed++
			lastErr = err
			s.logger.Warn("page table extraction failed",
				"strategy", s.name,
				"page", page,
				slog.Any("error", err),
			)
			continue
		}

		rows, preamble := grid.page(lines)
		if len(rows) == 0 && s.lineFallback {
			texts := make([]string, len(lines))
			for i, l := range lines {
				texts[i] = l.Text()
			}
			rows, preamble = parseTextLines(texts, s.minAmountTokens)
		}

		for i := range rows {
			rows[i].Page, rows[i].Strategy, rows[i].File = page, s.name, file
		}
		out.Rows = append(out.Rows, rows...)
		if len(out.Preamble) == 0 {
			out.Preamble = preamble
		}
	}

	if pages > 0 && failed == pages {
		return nil, fmt.Errorf("all %d pages failed: %w", pages, lastErr)
	}
	return out, nil
}

type span struct{ start, end float64 }

// gridParser holds the active header between pages.
type gridParser struct {
	headers []string
	spans   []span
	cols    sniffer.ColumnMap
}

func (g *gridParser) page(lines []Line) ([]model.PDFRow, []string) {
	var (
		rows     []model.PDFRow
		preamble []string
	)

	for _, line := range lines {
		texts := line.Texts()
		if g.tryHeader(line, texts) {
			continue
		}
		if g.spans == nil {
			preamble = append(preamble, line.Text())
			continue
		}

		cells := g.assign(line)
		date := sniffer.Cell(cells, g.cols.Date)
		if !normalizer.LooksLikeDate(date) {
			// wrapped narration continues the previous row
			if len(rows) > 0 && date == "" && g.cols.Continuation(cells) {
				last := &rows[len(rows)-1]
				last.Description = collapseSpaces(last.Description + " " + sniffer.Cell(cells, g.cols.Description))
			}
			continue
		}

		desc := sniffer.Cell(cells, g.cols.Description)
		legs, err := sniffer.ReadLegs(cells, g.cols, false)
		if err != nil || desc == "" {
			continue
		}
		for _, leg := range legs {
			rows = append(rows, model.PDFRow{
				Date:        date,
				Description: desc,
				Amount:      leg.Amount,
				Type:        leg.Type,
				Balance:     sniffer.Cell(cells, g.cols.Balance),
			})
		}
	}
	return rows, preamble
}

// tryHeader installs line as the active header when it scores as one and
// resolves a date, description and amount.
func (g *gridParser) tryHeader(line Line, texts []string) bool {
	if sniffer.HeaderScore(texts) < sniffer.MinHeaderScore {
		return false
	}
	cols := sniffer.ResolveColumns(texts)
	if !cols.Viable() || !cols.HasAmount() {
		return false
	}
	g.headers = texts
	g.cols = cols
	g.spans = make([]span, len(line.Cells))
	for i, c := range line.Cells {
		g.spans[i] = span{c.X, c.End}
	}
	return true
}

// assign places each cell under the header column it overlaps most, or the
// nearest one by centre when it overlaps none.
func (g *gridParser) assign(line Line) []string {
	out := make([]string, len(g.spans))
	for _, c := range line.Cells {
		best, bestOverlap, bestDist := 0, 0.0, math.MaxFloat64
		mid := (c.X + c.End) / 2
		for i, sp := range g.spans {
			overlap := math.Min(c.End, sp.end) - math.Max(c.X, sp.start)
			dist := math.Abs(mid - (sp.start+sp.end)/2)
			if overlap > bestOverlap || (bestOverlap <= 0 && overlap <= 0 && dist < bestDist) {
				best, bestOverlap, bestDist = i, math.Max(overlap, 0), dist
			}
		}
		if out[best] == "" {
			out[best] = c.Text
		} else {
			out[best] = out[best] + " " + c.Text
		}
	}
	return out
}
