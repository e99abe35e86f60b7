package normalizer

import (
	"regexp"
	"strings"
)

// Confidence levels reported by MerchantSanitizer.Normalize.
const (
	ConfidenceOverride = 100
	ConfidencePattern  = 90
	ConfidenceFallback = 40
)

// MerchantInfo contains normalized merchant information
type MerchantInfo struct {
	OriginalName   string `json:"original_name"`
	NormalizedName string `json:"normalized_name"`
	Category       string `json:"category,omitempty"`
	Confidence     int    `json:"confidence"`
}

// MerchantPattern defines a pattern for matching and normalizing merchants
type MerchantPattern struct {
	Pattern  *regexp.Regexp
	Name     string
	Category string
}

// MerchantSanitizer maps raw merchant strings to canonical names. User
// overrides are consulted before the built-in pattern table.
type MerchantSanitizer struct {
	overrides []compiledOverride
	patterns  []MerchantPattern
}

type compiledOverride struct {
	MerchantOverride
	re *regexp.Regexp
}

// NewMerchantSanitizer creates a new sanitizer with common merchant patterns
func NewMerchantSanitizer() *MerchantSanitizer {
	return &MerchantSanitizer{
		patterns: defaultMerchantPatterns(),
	}
}

// WithOverrides installs user corrections. Regex overrides that do not
// compile are ignored.
func (s *MerchantSanitizer) WithOverrides(overrides []MerchantOverride) *MerchantSanitizer {
	s.overrides = s.overrides[:0]
	for _, o := range overrides {
		c := compiledOverride{MerchantOverride: o}
		if o.MatchType == MatchRegex {
			re, err := regexp.Compile("(?i)" + o.MatchPattern)
			if err != nil {
				continue
			}
			c.re = re
		}
		s.overrides = append(s.overrides, c)
	}
	return s
}

// Normalize returns the canonical merchant name and a confidence in 0..100.
func (s *MerchantSanitizer) Normalize(rawName string) (string, int) {
	info := s.Sanitize(rawName)
	return info.NormalizedName, info.Confidence
}

// Sanitize normalizes a merchant name and detects its category
func (s *MerchantSanitizer) Sanitize(rawMerchant string) MerchantInfo {
	result := MerchantInfo{
		OriginalName:   rawMerchant,
		NormalizedName: rawMerchant,
	}

	cleaned := cleanMerchantName(rawMerchant)
	if cleaned == "" {
		return result
	}
	result.NormalizedName = cleaned

	for _, o := range s.overrides {
		if o.matches(cleaned) {
			result.NormalizedName = o.MerchantName
			if o.Category != nil {
				result.Category = *o.Category
			}
			result.Confidence = ConfidenceOverride
			return result
		}
	}

	upper := strings.ToUpper(cleaned)
	for _, pattern := range s.patterns {
		if pattern.Pattern.MatchString(upper) {
			result.NormalizedName = pattern.Name
			result.Category = pattern.Category
			result.Confidence = ConfidencePattern
			return result
		}
	}

	// Fallback: title case the cleaned name
	result.NormalizedName = titleCase(cleaned)
	result.Confidence = ConfidenceFallback
	return result
}

// AddPattern adds a custom merchant pattern
func (s *MerchantSanitizer) AddPattern(pattern string, name, category string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, MerchantPattern{
		Pattern:  re,
		Name:     name,
		Category: category,
	})
	return nil
}

func (o compiledOverride) matches(raw string) bool {
	switch o.MatchType {
	case MatchExact:
		return strings.EqualFold(raw, o.MatchPattern)
	case MatchContains:
		return strings.Contains(strings.ToUpper(raw), strings.ToUpper(o.MatchPattern))
	case MatchRegex:
		return o.re != nil && o.re.MatchString(raw)
	}
	return false
}

var (
	merchantPrefixes = []string{
		"POS ", "PURCHASE ", "PAYMENT TO ", "PAYMENT ", "BILLPAY ", "BIL/",
		"ECOM ", "VISA ", "MASTERCARD ", "RUPAY ",
	}
	trailingRefPattern  = regexp.MustCompile(`\s+\d{4,}$`)
	trailingDatePattern = regexp.MustCompile(`\s+\d{1,2}/\d{1,2}/?$`)
)

// cleanMerchantName removes common noise from merchant names
func cleanMerchantName(raw string) string {
	result := strings.TrimSpace(raw)
	if m := ExtractMerchant(result); m != "" {
		result = m
	}

	upper := strings.ToUpper(result)
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(upper, prefix) {
			result = result[len(prefix):]
			break
		}
	}

	result = trailingRefPattern.ReplaceAllString(result, "")
	result = trailingDatePattern.ReplaceAllString(result, "")
	result = spacePattern.ReplaceAllString(result, " ")

	return strings.TrimSpace(result)
}

// titleCase converts a string to title case
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(string(word[0])) + strings.ToLower(word[1:])
		}
	}
	return strings.Join(words, " ")
}

// defaultMerchantPatterns returns common merchant patterns for Indian statements
func defaultMerchantPatterns() []MerchantPattern {
	return []MerchantPattern{
		// Food delivery
		{regexp.MustCompile(`SWIGGY`), "Swiggy", "Food & Dining"},
		{regexp.MustCompile(`ZOMATO`), "Zomato", "Food & Dining"},
		{regexp.MustCompile(`STARBUCKS|TATA\s*STARBUCKS`), "Starbucks", "Food & Dining"},
		{regexp.MustCompile(`MC\s*DONALDS|MCDONALD`), "McDonald's", "Food & Dining"},
		{regexp.MustCompile(`DOMINO`), "Domino's", "Food & Dining"},

		// Groceries
		{regexp.MustCompile(`BIG\s*BASKET|BIGBASKET`), "BigBasket", "Groceries"},
		{regexp.MustCompile(`BLINKIT|GROFERS`), "Blinkit", "Groceries"},
		{regexp.MustCompile(`ZEPTO`), "Zepto", "Groceries"},
		{regexp.MustCompile(`DMART|AVENUE\s*SUPERMARTS`), "DMart", "Groceries"},
		{regexp.MustCompile(`RELIANCE\s*(FRESH|SMART|RETAIL)`), "Reliance Retail", "Groceries"},

		// Shopping
		{regexp.MustCompile(`AMAZON|AMZN`), "Amazon", "Shopping"},
		{regexp.MustCompile(`FLIPKART`), "Flipkart", "Shopping"},
		{regexp.MustCompile(`MYNTRA`), "Myntra", "Shopping"},
		{regexp.MustCompile(`AJIO`), "Ajio", "Shopping"},
		{regexp.MustCompile(`NYKAA`), "Nykaa", "Shopping"},

		// Transport
		{regexp.MustCompile(`\bUBER\b`), "Uber", "Transport"},
		{regexp.MustCompile(`\bOLA\b|OLACABS|ANI\s*TECHNOLOGIES`), "Ola", "Transport"},
		{regexp.MustCompile(`RAPIDO`), "Rapido", "Transport"},
		{regexp.MustCompile(`IRCTC`), "IRCTC", "Travel"},
		{regexp.MustCompile(`INDIGO|INTERGLOBE`), "IndiGo", "Travel"},
		{regexp.MustCompile(`MAKEMYTRIP|MMT\s*INDIA`), "MakeMyTrip", "Travel"},
		{regexp.MustCompile(`FASTAG`), "FASTag", "Transport"},

		// Fuel
		{regexp.MustCompile(`INDIAN\s*OIL|IOCL`), "Indian Oil", "Fuel"},
		{regexp.MustCompile(`BHARAT\s*PETROLEUM|BPCL`), "Bharat Petroleum", "Fuel"},
		{regexp.MustCompile(`HINDUSTAN\s*PETROLEUM|HPCL`), "HP Petrol", "Fuel"},

		// Utilities and telecom
		{regexp.MustCompile(`AIRTEL`), "Airtel", "Bills & Utilities"},
		{regexp.MustCompile(`\bJIO\b|RELIANCE\s*JIO`), "Jio", "Bills & Utilities"},
		{regexp.MustCompile(`\bVI\b|VODAFONE\s*IDEA`), "Vi", "Bills & Utilities"},
		{regexp.MustCompile(`BESCOM|TATA\s*POWER|ADANI\s*ELECTRICITY|MSEDCL`), "Electricity", "Bills & Utilities"},
		{regexp.MustCompile(`BBPS|BILLDESK`), "BillDesk", "Bills & Utilities"},

		// Entertainment
		{regexp.MustCompile(`NETFLIX`), "Netflix", "Entertainment"},
		{regexp.MustCompile(`SPOTIFY`), "Spotify", "Entertainment"},
		{regexp.MustCompile(`HOTSTAR|DISNEY`), "Disney+ Hotstar", "Entertainment"},
		{regexp.MustCompile(`BOOKMYSHOW`), "BookMyShow", "Entertainment"},

		// Wallets and finance
		{regexp.MustCompile(`PAYTM`), "Paytm", "Transfers"},
		{regexp.MustCompile(`PHONEPE`), "PhonePe", "Transfers"},
		{regexp.MustCompile(`\bCRED\b`), "CRED", "Credit Card Payment"},
		{regexp.MustCompile(`ZERODHA`), "Zerodha", "Investments"},
		{regexp.MustCompile(`GROWW`), "Groww", "Investments"},
		{regexp.MustCompile(`\bLIC\b|LIFE\s*INSURANCE\s*CORP`), "LIC", "Insurance"},
	}
}
