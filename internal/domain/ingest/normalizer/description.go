package normalizer

import (
	"regexp"
	"strings"
)

var (
	spacePattern = regexp.MustCompile(`\s+`)

	// Reference numbers: "REF NO 1234", "Ref#AB12CD", "UTR: 4123..."
	refPattern = regexp.MustCompile(`(?i)\b(?:ref(?:erence)?|utr|rrn|txn\s*id|chq)\s*(?:no\.?|number)?\s*[:#.\-]?\s*[a-z0-9]*\d[a-z0-9]*`)

	// Payment rail tags, with or without a separator: "UPI/", "NEFT-", "IMPS "
	railPattern = regexp.MustCompile(`(?i)(?:^|[\s/\-])(?:upi|neft|imps|rtgs|mmt|inft|nach|ach|ecs|pos|ib|mb)(?:[\s/\-:]|$)`)

	// Long digit runs and alphanumeric bank refs (SBIN0001234, YESB0000001)
	idPattern = regexp.MustCompile(`\b(?:\d{6,}|[A-Z]{4}0[A-Z0-9]{6}|[A-Z0-9]*\d{6,}[A-Z0-9]*)\b`)

	// UPI handles (name@okaxis)
	vpaPattern = regexp.MustCompile(`(?i)\b[a-z0-9._\-]+@[a-z]{2,64}\b`)

	separatorRun = regexp.MustCompile(`\s*[/|\-:]+\s*`)
)

// CleanDescription normalizes narration text for downstream matching: it
// collapses whitespace and drops reference numbers, payment rail tags,
// account/VPA identifiers and separator noise. When stripping would leave
// nothing, the whitespace-collapsed input is returned instead.
func CleanDescription(raw string) string {
	collapsed := strings.TrimSpace(spacePattern.ReplaceAllString(raw, " "))
	if collapsed == "" {
		return ""
	}

	result := refPattern.ReplaceAllString(collapsed, " ")
	result = vpaPattern.ReplaceAllString(result, " ")
	// rail tags may be adjacent to each other ("UPI/DR/"), so run twice
	for i := 0; i < 2; i++ {
		result = railPattern.ReplaceAllString(result, " ")
	}
	result = idPattern.ReplaceAllString(result, " ")
	result = separatorRun.ReplaceAllString(result, " ")
	result = strings.Trim(strings.TrimSpace(spacePattern.ReplaceAllString(result, " ")), "/-:|,. ")

	if result == "" {
		return collapsed
	}
	return result
}

// upiMerchantPattern extracts the payee segment of a UPI narration such as
// UPI/412345678901/SWIGGY LTD/swiggy@icici/ICIC or UPI-SWIGGY-SWIGGY@ICICI-...
var upiMerchantPattern = regexp.MustCompile(`(?i)^upi[/\-](?:(?:dr|cr|p2m|p2a)[/\-])?(?:\d{6,}[/\-])?([^/\-@]*[a-z][^/\-@]*)`)

// impsMerchantPattern extracts the counterparty of MMT/IMPS/<ref>/<name>/... and NEFT-<ref>-<name>-...
var (
	impsMerchantPattern = regexp.MustCompile(`(?i)^mmt/imps/\d+/(?:ok/|reqpay/)?([^/]+)`)
	neftMerchantPattern = regexp.MustCompile(`(?i)^neft[\-/][a-z0-9]+[\-/]([^\-/]+)`)
)

// ExtractMerchant returns the counterparty name embedded in a rail-tagged
// narration, or "" when the narration has no recognizable shape.
func ExtractMerchant(description string) string {
	desc := strings.TrimSpace(description)
	for _, p := range []*regexp.Regexp{upiMerchantPattern, impsMerchantPattern, neftMerchantPattern} {
		if m := p.FindStringSubmatch(desc); m != nil {
			name := strings.TrimSpace(m[1])
			if len(name) >= 2 {
				return name
			}
		}
	}
	return ""
}
