// Package normalizer turns parser-specific raw rows into canonical transactions.
// It also hosts the shared amount, date and narration micro-parsers used by
// every statement parser.
package normalizer

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
)

var (
	ErrInvalidAmount = errors.New("invalid amount format")
	ErrInvalidDate   = errors.New("invalid date format")
	ErrEmptyAmount   = errors.New("empty amount")
)

// currencyTokens are stripped before numeric parsing. Longer tokens first.
var currencyTokens = []string{"R$", "Rs.", "Rs", "INR", "USD", "EUR", "GBP", "₹", "$", "€", "£"}

// amountTokenPattern finds money-looking tokens inside a statement line:
// Indian (1,23,456.78) and western (123,456.78) grouping, a mandatory
// two-digit fraction, and an optional Cr/Dr suffix.
var amountTokenPattern = regexp.MustCompile(`(?i)(?:^|\s)\(?-?(?:₹|rs\.?|inr)?\s?(\d{1,3}(?:,\d{2,3})+|\d+)\.\d{2}\)?(?:\s?(?:cr|dr)\b)?`)

var suffixPattern = regexp.MustCompile(`(?i)(?:^|[^a-z])(cr|dr)\.?\s*$`)

// ParseAmount converts a raw money string into a signed decimal.
// Supports both European (1.234,56) and Indian/American (1,23,456.78) grouping,
// leading minus, accounting parentheses and a trailing Cr/Dr marker (Dr is
// negative).
func ParseAmount(raw string, isEuropean bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	negative := false
	if loc := suffixPattern.FindStringSubmatchIndex(s); loc != nil {
		negative = strings.EqualFold(s[loc[2]:loc[3]], "dr")
		s = strings.TrimSpace(s[:loc[2]])
	}

	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}

	// Keep digits, separators and sign
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' || r == '+' {
			return r
		}
		if unicode.IsSpace(r) || r == '\'' {
			return -1
		}
		return 'x'
	}, s)
	if cleaned == "" || strings.ContainsRune(cleaned, 'x') {
		return decimal.Zero, ErrInvalidAmount
	}

	if strings.HasPrefix(cleaned, "-") {
		negative = !negative
		cleaned = cleaned[1:]
	}
	cleaned = strings.TrimPrefix(cleaned, "+")
	if strings.HasSuffix(cleaned, "-") {
		negative = !negative
		cleaned = strings.TrimSuffix(cleaned, "-")
	}

	if isEuropean {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	val, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if negative {
		val = val.Neg()
	}
	return val, nil
}

// IsZeroAmount reports whether raw is blank, a dash placeholder, or parses to zero.
func IsZeroAmount(raw string, isEuropean bool) bool {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" || s == "--" {
		return true
	}
	v, err := ParseAmount(s, isEuropean)
	return err != nil || v.IsZero()
}

// SuffixType returns the type carried by a trailing Cr/Dr marker, or "".
func SuffixType(raw string) model.TxnType {
	m := suffixPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return ""
	}
	if strings.EqualFold(m[1], "cr") {
		return model.Credit
	}
	return model.Debit
}

// AmountToken is a money token found inside free text.
type AmountToken struct {
	Raw   string
	Start int
	End   int
}

// FindAmountTokens returns the money tokens of line in order of appearance.
func FindAmountTokens(line string) []AmountToken {
	idx := amountTokenPattern.FindAllStringIndex(line, -1)
	tokens := make([]AmountToken, 0, len(idx))
	for _, loc := range idx {
		// reject the head of a longer token such as 01.02.2025
		if loc[1] < len(line) {
			next := line[loc[1]]
			if next == '.' || next == '/' || next == '-' || (next >= '0' && next <= '9') {
				continue
			}
		}
		raw := strings.TrimSpace(line[loc[0]:loc[1]])
		start := loc[1] - len(strings.TrimLeft(line[loc[0]:loc[1]], " \t"))
		tokens = append(tokens, AmountToken{Raw: raw, Start: start, End: loc[1]})
	}
	return tokens
}

// Money formats an amount magnitude with two decimals, the way raw rows carry it.
func Money(d decimal.Decimal) string {
	return d.Abs().StringFixed(2)
}
