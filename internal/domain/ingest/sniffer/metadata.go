package sniffer

import (
	"regexp"
	"strings"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
)

var (
	accountRowPattern    = regexp.MustCompile(`(?i)\b(account|a/c|acct|ac no)\b`)
	accountNumberPattern = regexp.MustCompile(`(?i)(?:^|[^\w])([x*]{2,}\d{3,}|\d{8,})\b`)
	holderAfterPattern   = regexp.MustCompile(`^\s*(?:\([^)]*\))?\s*-\s*([A-Za-z][A-Za-z .']*[A-Za-z])`)
	holderLabelPattern   = regexp.MustCompile(`(?i)^(?:account\s*holder(?:\s*name)?|customer\s*name|a/c\s*name|name)\s*(?::\s*(.*))?$`)
	typeLabelPattern     = regexp.MustCompile(`(?i)^account\s*type\s*(?::\s*(.*))?$`)
)

type bankAlias struct {
	name    string
	pattern *regexp.Regexp
}

// knownBanks is ordered so that names contained in other names come later:
// "Union Bank of India" is tried before "Bank of India".
var knownBanks = buildBankAliases([][]string{
	{"State Bank of India", "state bank of india", "sbi"},
	{"Union Bank of India", "union bank of india", "union bank"},
	{"Central Bank of India", "central bank of india"},
	{"Bank of Baroda", "bank of baroda"},
	{"Bank of Maharashtra", "bank of maharashtra"},
	{"Bank of India", "bank of india"},
	{"Punjab National Bank", "punjab national bank", "pnb"},
	{"Indian Overseas Bank", "indian overseas bank", "iob"},
	{"Indian Bank", "indian bank"},
	{"HDFC Bank", "hdfc bank", "hdfc"},
	{"ICICI Bank", "icici bank", "icici"},
	{"Axis Bank", "axis bank", "axis"},
	{"Kotak Mahindra Bank", "kotak mahindra bank", "kotak"},
	{"IDFC First Bank", "idfc first bank", "idfc"},
	{"IndusInd Bank", "indusind bank", "indusind"},
	{"Yes Bank", "yes bank"},
	{"Federal Bank", "federal bank"},
	{"Canara Bank", "canara bank"},
	{"RBL Bank", "rbl bank", "rbl"},
	{"Standard Chartered", "standard chartered"},
	{"HSBC", "hsbc"},
	{"Citibank", "citibank", "citi"},
	{"American Express", "american express", "amex"},
})

func buildBankAliases(entries [][]string) []bankAlias {
	aliases := make([]bankAlias, 0, len(entries))
	for _, e := range entries {
		quoted := make([]string, 0, len(e)-1)
		for _, a := range e[1:] {
			quoted = append(quoted, regexp.QuoteMeta(a))
		}
		aliases = append(aliases, bankAlias{
			name:    e[0],
			pattern: regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`),
		})
	}
	return aliases
}

var accountTypes = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"Credit Card", regexp.MustCompile(`(?i)\bcredit\s*card\b`)},
	{"NRE", regexp.MustCompile(`(?i)\bnre\b`)},
	{"NRO", regexp.MustCompile(`(?i)\bnro\b`)},
	{"Salary", regexp.MustCompile(`(?i)\bsalary\s*(?:account|a/c)\b`)},
	{"Savings", regexp.MustCompile(`(?i)\bsavings?\b`)},
	{"Current", regexp.MustCompile(`(?i)\bcurrent\s*(?:account|a/c)\b`)},
}

// ExtractMetadata scans the preamble and then the trailing legend of t.
// Values found in the preamble win over the legend.
func ExtractMetadata(t *Table) model.StatementMetadata {
	meta := MetadataFromRows(t.Preamble())

	var legend [][]string
	for _, row := range t.Legend() {
		if !hasDateCell(row) {
			legend = append(legend, row)
		}
	}
	meta.Merge(MetadataFromRows(legend))
	return meta
}

// MetadataFromRows extracts account details from free-form statement rows.
func MetadataFromRows(rows [][]string) model.StatementMetadata {
	var meta model.StatementMetadata

	for _, row := range rows {
		line := JoinCells(row)
		if line == "" {
			continue
		}

		if meta.AccountNumber == "" && accountRowPattern.MatchString(line) {
			if loc := accountNumberPattern.FindStringSubmatchIndex(line); loc != nil {
				meta.AccountNumber = line[loc[2]:loc[3]]
				if m := holderAfterPattern.FindStringSubmatch(line[loc[3]:]); m != nil {
					meta.AccountHolderName = strings.TrimSpace(m[1])
				}
			}
		}

		if meta.AccountHolderName == "" {
			if v := LabeledValue(row, holderLabelPattern); v != "" {
				meta.AccountHolderName = v
			}
		}

		if meta.AccountType == "" {
			if v := LabeledValue(row, typeLabelPattern); v != "" {
				meta.AccountType = AccountType(v)
				if meta.AccountType == "" {
					meta.AccountType = v
				}
			} else {
				meta.AccountType = AccountType(line)
			}
		}

		if meta.BankName == "" {
			meta.BankName = BankName(line)
		}
	}

	return meta
}

// BankName returns the canonical name of the first known bank mentioned in text.
func BankName(text string) string {
	for _, b := range knownBanks {
		if b.pattern.MatchString(text) {
			return b.name
		}
	}
	return ""
}

// AccountType returns the account type keyword found in text, or "".
func AccountType(text string) string {
	for _, at := range accountTypes {
		if at.pattern.MatchString(text) {
			return at.name
		}
	}
	return ""
}

// LabeledValue reads "Label: value" from a single cell or from the first
// non-empty cell after a label cell.
func LabeledValue(row []string, label *regexp.Regexp) string {
	for i, c := range row {
		m := label.FindStringSubmatch(strings.TrimSpace(c))
		if m == nil {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
		for _, next := range row[i+1:] {
			if v := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(next), ":")); v != "" {
				return v
			}
		}
		return ""
	}
	return ""
}

// hasDateCell reports whether row looks like a transaction line.
func hasDateCell(row []string) bool {
	for _, c := range row {
		if normalizer.LooksLikeDate(c) {
			return true
		}
	}
	return false
}

// JoinCells joins the non-empty cells of row with single spaces.
func JoinCells(row []string) string {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}
