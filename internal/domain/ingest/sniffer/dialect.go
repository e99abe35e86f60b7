package sniffer

import (
	"strings"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
)

// Dialect describes the number and date conventions of a statement.
type Dialect struct {
	IsEuropean   bool    // 1.234,56 grouping
	DateFormat   string  // DD/MM/YYYY style layout, "" when undetermined
	CurrencyHint string  // "INR", "EUR", "USD" if detected
	Confidence   float64 // share of amount hints agreeing with IsEuropean
}

// ProbeDialect samples the amount columns and the date column of data rows.
// Statements default to Indian/American grouping; European grouping needs
// strictly more European hints.
func ProbeDialect(rows [][]string, amountIdx []int, dateIdx int) Dialect {
	d := Dialect{Confidence: 0.5}

	europeanHints, usHints := 0, 0
	var dates []string

	for _, row := range rows {
		for _, idx := range amountIdx {
			switch analyzeAmountFormat(Cell(row, idx)) {
			case 1:
				europeanHints++
			case -1:
				usHints++
			}
		}

		if v := Cell(row, dateIdx); v != "" {
			dates = append(dates, v)
		}

		for _, c := range row {
			switch {
			case strings.Contains(c, "₹") || strings.Contains(c, "INR") || strings.Contains(c, "Rs."):
				d.CurrencyHint = "INR"
				usHints++
			case strings.Contains(c, "€") || strings.Contains(c, "EUR"):
				d.CurrencyHint = "EUR"
				europeanHints++
			case strings.Contains(c, "$"):
				if d.CurrencyHint == "" {
					d.CurrencyHint = "USD"
				}
				usHints++
			}
		}
	}

	d.IsEuropean = europeanHints > usHints
	if total := europeanHints + usHints; total > 0 {
		winning := usHints
		if d.IsEuropean {
			winning = europeanHints
		}
		d.Confidence = float64(winning) / float64(total)
	}

	d.DateFormat = normalizer.DetectDateFormat(dates)
	return d
}

// analyzeAmountFormat returns: >0 for European, <0 for US, 0 for ambiguous
func analyzeAmountFormat(val string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' {
			return r
		}
		return -1
	}, val)
	if cleaned == "" {
		return 0
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// the later separator is the decimal one
		if lastComma > lastDot {
			return 1
		}
		return -1
	case lastComma >= 0:
		if len(cleaned)-lastComma-1 <= 2 {
			return 1
		}
	case lastDot >= 0:
		if len(cleaned)-lastDot-1 <= 2 {
			return -1
		}
	}
	return 0
}
