package creditcard

import (
	"regexp"
	"strings"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/sniffer"
)

var (
	// 4375 51XX XXXX 1234, XXXX XXXX XXXX 1234, 0000XXXXXXXX1234
	maskedCardPattern = regexp.MustCompile(`(?i)(?:^|[^\w*])([\dx*]{4}[\s-]?[\dx*]{2}[x*]{2}[\s-]?[x*]{4}[\s-]?(\d{4}))\b`)

	cardHolderPattern = regexp.MustCompile(`(?i)^(?:primary\s*)?(?:card\s*holder(?:\s*name)?|name\s*on\s*(?:the\s*)?card)\s*(?::\s*(.*))?$`)
	periodPattern     = regexp.MustCompile(`(?i)\b(?:statement|billing)\s*(?:period|cycle|from)\b`)
	embeddedDate      = regexp.MustCompile(`(?i)\b(\d{4}-\d{1,2}-\d{1,2}|\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}|\d{1,2}[\s-]?(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*[\s,-]*\d{2,4})\b`)
	honorificPattern  = regexp.MustCompile(`(?i)^(?:mr|mrs|ms|miss|dr)\.?\s+`)
)

// CardMetadata reads card details from free-form statement rows: the masked
// card number, the card holder and the billing period.
func CardMetadata(rows [][]string) model.StatementMetadata {
	var meta model.StatementMetadata

	for _, row := range rows {
		line := sniffer.JoinCells(row)
		if line == "" {
			continue
		}

		if meta.CardLast4Digits == "" {
			if m := maskedCardPattern.FindStringSubmatch(line); m != nil {
				meta.CardLast4Digits = m[2]
				meta.AccountNumber = compactCard(m[1])
			}
		}

		if meta.AccountHolderName == "" {
			if v := sniffer.LabeledValue(row, cardHolderPattern); v != "" {
				meta.AccountHolderName = holderName(v)
			}
		}

		if meta.BillingPeriod == "" && periodPattern.MatchString(line) {
			meta.BillingPeriod = billingPeriod(line)
		}
	}

	return meta
}

// MaskedCard reports whether any of rows carries a masked card number.
func MaskedCard(rows [][]string) bool {
	for _, row := range rows {
		if maskedCardPattern.MatchString(sniffer.JoinCells(row)) {
			return true
		}
	}
	return false
}

// StatementMetadata merges card details with the generic account metadata
// of a sniffed table. Card-specific values win.
func StatementMetadata(t *sniffer.Table) model.StatementMetadata {
	rows := append([][]string{}, t.Preamble()...)
	for _, row := range t.Legend() {
		if !transactionRow(row) {
			rows = append(rows, row)
		}
	}

	meta := CardMetadata(rows)
	meta.Merge(sniffer.ExtractMetadata(t))
	if meta.AccountType == "" || meta.CardLast4Digits != "" {
		meta.AccountType = "Credit Card"
	}
	meta.AccountHolderName = holderName(meta.AccountHolderName)
	return meta
}

// billingPeriod renders the first two dates on a line as "from to to" in
// ISO form. A single date is kept as is.
func billingPeriod(line string) string {
	var dates []string
	for _, m := range embeddedDate.FindAllStringSubmatch(line, -1) {
		if d, err := normalizer.NormalizeDate(m[1]); err == nil {
			dates = append(dates, d)
		}
		if len(dates) == 2 {
			break
		}
	}
	switch len(dates) {
	case 0:
		return ""
	case 1:
		return dates[0]
	}
	return dates[0] + " to " + dates[1]
}

func compactCard(s string) string {
	return strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(s))
}

func holderName(s string) string {
	return strings.TrimSpace(honorificPattern.ReplaceAllString(strings.TrimSpace(s), ""))
}

func transactionRow(row []string) bool {
	for _, c := range row {
		if normalizer.LooksLikeDate(c) {
			return true
		}
	}
	return false
}
