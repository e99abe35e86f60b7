package sniffer

import (
	"slices"
	"strings"
)

// ColumnMap holds the index of each resolved column role, -1 when absent.
type ColumnMap struct {
	Date        int `json:"date"`
	Description int `json:"description"`
	Amount      int `json:"amount"`
	Debit       int `json:"debit"`
	Credit      int `json:"credit"`
	Balance     int `json:"balance"`
	Type        int `json:"type"`
	Reference   int `json:"reference"`
}

// Viable reports whether the minimum role set (date and description) resolved.
func (c ColumnMap) Viable() bool {
	return c.Date >= 0 && c.Description >= 0
}

// HasAmount reports whether any amount-bearing column resolved.
func (c ColumnMap) HasAmount() bool {
	return c.Amount >= 0 || c.Debit >= 0 || c.Credit >= 0
}

// Continuation reports whether row holds nothing but description text, the
// shape of a narration line wrapped onto the next row.
func (c ColumnMap) Continuation(row []string) bool {
	for i, cell := range row {
		if strings.TrimSpace(cell) != "" && i != c.Description {
			return false
		}
	}
	return Cell(row, c.Description) != ""
}

// Missing lists the required roles that did not resolve.
func (c ColumnMap) Missing() []string {
	var missing []string
	if c.Date < 0 {
		missing = append(missing, "date")
	}
	if c.Description < 0 {
		missing = append(missing, "description")
	}
	return missing
}

var (
	balanceKeys     = []string{"balance", "bal"}
	dateKeys        = []string{"date", "dt", "posted", "posting"}
	typeKeys        = []string{"type", "sign"}
	debitKeys       = []string{"withdrawal", "withdrawals", "debit", "debits", "dr", "paid"}
	creditKeys      = []string{"deposit", "deposits", "credit", "credits", "cr", "received"}
	amountKeys      = []string{"amount", "amt", "value", "inr", "rs"}
	foreignKeys     = []string{"intl", "foreign", "forex", "usd"}
	referenceKeys   = []string{"ref", "reference", "chq", "cheque", "utr"}
	descriptionKeys = []string{"narration", "particulars", "description", "details", "remarks", "merchant", "transaction", "info"}
)

// ResolveColumns assigns a role to each header cell by keyword matching on
// its word tokens. Each column takes the first role it qualifies for and each
// role keeps the first column that claims it.
func ResolveColumns(headers []string) ColumnMap {
	cols := ColumnMap{
		Date: -1, Description: -1, Amount: -1, Debit: -1,
		Credit: -1, Balance: -1, Type: -1, Reference: -1,
	}

	assign := func(field *int, i int) {
		if *field == -1 {
			*field = i
		}
	}

	for i, header := range headers {
		toks := tokens(header)
		if len(toks) == 0 {
			continue
		}
		hasDebit := hasAny(toks, debitKeys)
		hasCredit := hasAny(toks, creditKeys)

		switch {
		case hasAny(toks, balanceKeys):
			assign(&cols.Balance, i)
		case hasAny(toks, dateKeys):
			assign(&cols.Date, i)
		case hasAny(toks, typeKeys) || (hasDebit && hasCredit):
			assign(&cols.Type, i)
		case hasDebit:
			assign(&cols.Debit, i)
		case hasCredit:
			assign(&cols.Credit, i)
		case hasAny(toks, amountKeys) && !hasAny(toks, foreignKeys):
			assign(&cols.Amount, i)
		case hasAny(toks, referenceKeys):
			assign(&cols.Reference, i)
		case hasAny(toks, descriptionKeys):
			assign(&cols.Description, i)
		}
	}

	return cols
}

func hasAny(toks []string, keys []string) bool {
	for _, t := range toks {
		if slices.Contains(keys, t) {
			return true
		}
	}
	return false
}

// Cell returns row[idx] trimmed, or "" when idx is unset or out of range.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
