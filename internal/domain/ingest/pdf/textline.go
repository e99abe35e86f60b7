package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
)

const StrategyTextLine = "text-line"

var (
	creditHint = regexp.MustCompile(`(?i)\b(cr|deposit|credit(?:ed)?|refund|reversal)\b`)
	debitHint  = regexp.MustCompile(`(?i)\b(dr|withdraw(?:al)?|debit(?:ed)?)\b`)
)

// DefaultMinAmountTokens is the text-line requirement for bank statements:
// an amount and a running balance.
const DefaultMinAmountTokens = 2

// TextLineStrategy reads the plain text of each page and keeps lines that
// start with a date and carry enough amount tokens.
type TextLineStrategy struct {
	open            Opener
	logger          *slog.Logger
	minAmountTokens int
}

// NewTextLineStrategy creates the text-line strategy requiring
// DefaultMinAmountTokens per line.
func NewTextLineStrategy(open Opener, logger *slog.Logger) *TextLineStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextLineStrategy{open: open, logger: logger, minAmountTokens: DefaultMinAmountTokens}
}

// WithMinAmountTokens lowers the token requirement for statements without a
// balance column, such as credit-card statements.
func (s *TextLineStrategy) WithMinAmountTokens(n int) *TextLineStrategy {
	if n >= 1 {
		s.minAmountTokens = n
	}
	return s
}

func (s *TextLineStrategy) Name() string { return StrategyTextLine }

func (s *TextLineStrategy) Extract(ctx context.Context, path string) (*Extraction, error) {
	doc, err := s.open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	file := fileName(path)
	out := &Extraction{}
	pages := doc.NumPages()
	failed := 0
	var lastErr error

	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := doc.PageText(page)
		if err != nil {
			failed++
			lastErr = err
			s.logger.Warn("page text extraction failed",
				"strategy", StrategyTextLine,
				"page", page,
				slog.Any("error", err),
			)
			continue
		}

		rows, preamble := parseTextLines(strings.Split(text, "\n"), s.minAmountTokens)
		for i := range rows {
			rows[i].Page, rows[i].Strategy, rows[i].File = page, StrategyTextLine, file
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

// parseTextLines applies the line heuristics to one page. It returns the rows
// and the lines that preceded the first transaction.
func parseTextLines(lines []string, minTokens int) ([]model.PDFRow, []string) {
	var (
		rows     []model.PDFRow
		preamble []string
	)

	for _, raw := range lines {
		line := collapseSpaces(raw)
		if line == "" {
			continue
		}

		row, ok := parseTextLine(line, minTokens)
		if !ok {
			if len(rows) == 0 {
				preamble = append(preamble, line)
			}
			continue
		}
		rows = append(rows, row...)
	}
	return rows, preamble
}

// parseTextLine interprets a single line:
//   - three or more amount tokens are (withdrawal, deposit, balance)
//   - two are (amount, balance)
//   - one is the amount
func parseTextLine(line string, minTokens int) ([]model.PDFRow, bool) {
	date := normalizer.LeadingDate(line)
	if date == "" {
		return nil, false
	}
	rest := line[strings.Index(line, date)+len(date):]

	// statements often print the value date right after the posting date
	if second := normalizer.LeadingDate(rest); second != "" {
		rest = rest[strings.Index(rest, second)+len(second):]
	}

	tokens := normalizer.FindAmountTokens(rest)
	if len(tokens) < minTokens || len(tokens) == 0 {
		return nil, false
	}

	switch {
	case len(tokens) >= 3:
		w, d, bal := tokens[len(tokens)-3], tokens[len(tokens)-2], tokens[len(tokens)-1]
		desc := collapseSpaces(rest[:w.Start])
		if desc == "" {
			return nil, false
		}
		base := model.PDFRow{Date: date, Description: desc, Balance: bal.Raw}

		var rows []model.PDFRow
		if !normalizer.IsZeroAmount(w.Raw, false) {
			r := base
			r.Amount, r.Type = magnitude(w.Raw), model.Debit
			rows = append(rows, r)
		}
		if !normalizer.IsZeroAmount(d.Raw, false) {
			r := base
			r.Amount, r.Type = magnitude(d.Raw), model.Credit
			rows = append(rows, r)
		}
		return rows, len(rows) > 0

	case len(tokens) == 2:
		amt, bal := tokens[0], tokens[1]
		desc := collapseSpaces(rest[:amt.Start])
		if desc == "" {
			return nil, false
		}
		return []model.PDFRow{{
			Date:        date,
			Description: desc,
			Amount:      amt.Raw,
			Type:        lineType(line, amt.Raw),
			Balance:     bal.Raw,
		}}, true

	default:
		amt := tokens[0]
		desc := collapseSpaces(rest[:amt.Start])
		if desc == "" {
			return nil, false
		}
		return []model.PDFRow{{
			Date:        date,
			Description: desc,
			Amount:      amt.Raw,
			Type:        lineType(line, amt.Raw),
		}}, true
	}
}

// lineType infers the direction from a Cr/Dr marker on the amount or from
// keywords on the line. Unknown stays empty and is defaulted downstream.
func lineType(line, amount string) model.TxnType {
	if t := normalizer.SuffixType(amount); t != "" {
		return t
	}
	c, d := creditHint.MatchString(line), debitHint.MatchString(line)
	switch {
	case c && !d:
		return model.Credit
	case d && !c:
		return model.Debit
	}
	return ""
}

// magnitude renders a leg amount without sign or marker.
func magnitude(raw string) string {
	v, err := normalizer.ParseAmount(raw, false)
	if err != nil {
		return raw
	}
	return normalizer.Money(v)
}
