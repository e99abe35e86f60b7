package creditcard

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
	"github.com/nagarjunveerapu/runway/internal/domain/ingest/normalizer"
	"github.com/nagarjunveerapu/runway/pkg/money"
)

const (
	// LookBehind is how many same-date rows before an EMI row are searched
	// for its charges.
	LookBehind = 20
	// LookAhead is how many same-date rows after an EMI row are searched.
	LookAhead = 10

	kindEMI    = "emi"
	kindCharge = "charge"
)

var (
	emiPattern         = regexp.MustCompile(`(?i)\b(?:emi|emis|amorti[sz]ation|instal+ments?|principal)\b`)
	chargePattern      = regexp.MustCompile(`(?i)\b(?:gst|igst|cgst|sgst|tax|fees?|charges?|surcharge)\b`)
	installmentPattern = regexp.MustCompile(`[<(]\s*(\d{1,3})\s*/\s*(\d{1,3})\s*[>)]`)
	merchantNoise      = regexp.MustCompile(`(?i)\b(?:emi|emis|amorti[sz]ation|instal+ments?|principal|interest|amount|amt|on|for|of|loan|conversion)\b`)
	edgePunct          = regexp.MustCompile(`^[\s\-:/@%.,]+|[\s\-:/@%.,]+$`)
)

// Consolidation is the output of an EMI pass.
type Consolidation struct {
	Rows []model.CreditCardRow
	// Groups is the number of synthetic EMI rows produced.
	Groups int
	// Absorbed is the number of ledger rows folded into those groups.
	Absorbed int
}

// rowKind classifies a ledger line. Charge keywords take priority, so "GST ON
// EMI INTEREST" is a charge and never anchors a group.
func rowKind(description string) string {
	switch {
	case chargePattern.MatchString(description):
		return kindCharge
	case emiPattern.MatchString(description):
		return kindEMI
	}
	return ""
}

// installment returns the "i/n" marker of a description, or "".
func installment(description string) string {
	m := installmentPattern.FindStringSubmatch(description)
	if m == nil {
		return ""
	}
	return m[1] + "/" + m[2]
}

// emiMerchant returns the merchant an EMI line refers to: the text after the
// installment marker, or the description stripped of EMI vocabulary.
func emiMerchant(description string) string {
	if loc := installmentPattern.FindStringIndex(description); loc != nil {
		if after := cleanMerchant(description[loc[1]:]); after != "" {
			return after
		}
		return cleanMerchant(merchantNoise.ReplaceAllString(description[:loc[0]], " "))
	}
	return cleanMerchant(merchantNoise.ReplaceAllString(chargePattern.ReplaceAllString(description, " "), " "))
}

func cleanMerchant(s string) string {
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	return edgePunct.ReplaceAllString(s, "")
}

// ledgerLine is the per-row view the scan works on.
type ledgerLine struct {
	kind        string
	date        string
	installment string
	merchant    string
}

func describe(row model.CreditCardRow) ledgerLine {
	date, err := normalizer.NormalizeDate(row.Date)
	if err != nil {
		date = strings.TrimSpace(row.Date)
	}
	l := ledgerLine{kind: rowKind(row.Description), date: date, installment: installment(row.Description)}
	if l.kind != "" {
		l.merchant = emiMerchant(row.Description)
	}
	return l
}

// sameInstallment reports whether two EMI lines belong to one installment.
func (l ledgerLine) sameInstallment(o ledgerLine) bool {
	if l.installment == "" && l.merchant == "" {
		return false
	}
	return l.installment == o.installment && l.merchant == o.merchant
}

// fitsCharge reports whether a charge line can belong to anchor. A charge
// tagged for a different installment belongs to another group.
func (l ledgerLine) fitsCharge(anchor ledgerLine) bool {
	if l.installment != "" && anchor.installment != "" && l.installment != anchor.installment {
		return false
	}
	return true
}

// Consolidate folds the ledger lines of each EMI installment into one row.
// For every EMI row not yet consumed it absorbs same-date charge rows up to
// LookBehind rows back, then same-date charges and EMI rows of the same
// installment and merchant up to LookAhead rows forward. rows is not
// modified; output keeps ledger order with each group at its anchor.
func Consolidate(rows []model.CreditCardRow) (Consolidation, error) {
	lines := make([]ledgerLine, len(rows))
	for i, r := range rows {
		lines[i] = describe(r)
	}

	consumed := make([]bool, len(rows))
	groups := make(map[int][]int)

	for i, anchor := range lines {
		if anchor.kind != kindEMI || consumed[i] {
			continue
		}
		consumed[i] = true
		members := []int{i}

		for j, seen := i-1, 0; j >= 0 && seen < LookBehind; j, seen = j-1, seen+1 {
			if lines[j].date != anchor.date {
				break
			}
			if !consumed[j] && lines[j].kind == kindCharge && lines[j].fitsCharge(anchor) {
				consumed[j] = true
				members = append(members, j)
			}
		}

		for j, seen := i+1, 0; j < len(lines) && seen < LookAhead; j, seen = j+1, seen+1 {
			if lines[j].date != anchor.date {
				break
			}
			if consumed[j] {
				continue
			}
			switch {
			case lines[j].kind == kindCharge && lines[j].fitsCharge(anchor):
				consumed[j] = true
				members = append(members, j)
			case lines[j].kind == kindEMI && anchor.sameInstallment(lines[j]):
				consumed[j] = true
				members = append(members, j)
			}
		}

		groups[i] = members
	}

	out := Consolidation{Rows: make([]model.CreditCardRow, 0, len(rows))}
	for i, row := range rows {
		members, isAnchor := groups[i]
		if !isAnchor {
			if !consumed[i] {
				out.Rows = append(out.Rows, row)
			}
			continue
		}

		merged, err := mergeGroup(rows, lines, members)
		if err != nil {
			return Consolidation{}, err
		}
		out.Rows = append(out.Rows, merged)
		out.Groups++
		out.Absorbed += len(members)
	}
	return out, nil
}

// mergeGroup sums the member rows into one synthetic row. members[0] is the
// anchor; the breakdown lists members in ledger order.
func mergeGroup(rows []model.CreditCardRow, lines []ledgerLine, members []int) (model.CreditCardRow, error) {
	anchor := rows[members[0]]
	ordered := slices.Clone(members)
	slices.Sort(ordered)

	amounts := make([]*money.Money, 0, len(ordered))
	breakdown := make([]model.EMIComponent, 0, len(ordered))
	for _, idx := range ordered {
		r := rows[idx]
		d, err := normalizer.ParseAmount(r.Amount, false)
		if err != nil {
			return model.CreditCardRow{}, fmt.Errorf("emi row %d: amount %q: %w", r.Row, r.Amount, err)
		}
		amounts = append(amounts, money.FromDecimal(d.Abs(), money.INR))
		breakdown = append(breakdown, model.EMIComponent{
			Row:         r.Row,
			Description: r.Description,
			Amount:      normalizer.Money(d),
			Kind:        lines[idx].kind,
		})
	}

	total, err := money.Sum(amounts...)
	if err != nil {
		return model.CreditCardRow{}, err
	}

	l := lines[members[0]]
	desc := anchor.Description
	if l.installment != "" && l.merchant != "" {
		desc = fmt.Sprintf("EMI <%s> %s", l.installment, l.merchant)
	}

	merged := anchor
	merged.Description = desc
	merged.Amount = total.String()
	merged.Category = model.CategoryEMI
	merged.Consolidated = true
	merged.Breakdown = breakdown
	if merged.Type == "" {
		merged.Type = model.Debit
	}
	return merged, nil
}
