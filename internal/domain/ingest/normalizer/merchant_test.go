package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerchantSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewMerchantSanitizer()

	tests := []struct {
		name         string
		input        string
		expectedName string
		expectedCat  string
		confidence   int
	}{
		{"upi narration", "UPI/412345678901/SWIGGY LTD/swiggy@icici/ICIC", "Swiggy", "Food & Dining", ConfidencePattern},
		{"pos prefix", "POS AMAZON PAY INDIA 123456", "Amazon", "Shopping", ConfidencePattern},
		{"uber word boundary", "UBER INDIA SYSTEMS 12/10", "Uber", "Transport", ConfidencePattern},
		{"public is not lic", "PUBLIC PARKING", "Public Parking", "", ConfidenceFallback},
		{"unknown gets title case", "SHARMA GENERAL STORE 456789", "Sharma General Store", "", ConfidenceFallback},
		{"netflix", "NETFLIX.COM", "Netflix", "Entertainment", ConfidencePattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizer.Sanitize(tt.input)
			assert.Equal(t, tt.expectedName, result.NormalizedName)
			assert.Equal(t, tt.expectedCat, result.Category)
			assert.Equal(t, tt.confidence, result.Confidence)
		})
	}
}

func TestMerchantSanitizer_Normalize(t *testing.T) {
	name, confidence := NewMerchantSanitizer().Normalize("Zomato Ltd")
	assert.Equal(t, "Zomato", name)
	assert.Equal(t, ConfidencePattern, confidence)

	name, confidence = NewMerchantSanitizer().Normalize("   ")
	assert.Equal(t, "   ", name)
	assert.Zero(t, confidence)
}

func TestMerchantSanitizer_OverridesTakePriority(t *testing.T) {
	shopping := "Shopping"
	sanitizer := NewMerchantSanitizer().WithOverrides([]MerchantOverride{
		{MatchPattern: "SWIGGY INSTAMART", MatchType: MatchContains, MerchantName: "Instamart", Category: &shopping},
		{MatchPattern: "[", MatchType: MatchRegex, MerchantName: "broken"},
		{MatchPattern: `^sharma\s+general`, MatchType: MatchRegex, MerchantName: "Sharma Kirana"},
		{MatchPattern: "corner cafe", MatchType: MatchExact, MerchantName: "Corner Cafe"},
	})

	result := sanitizer.Sanitize("SWIGGY INSTAMART BANGALORE")
	assert.Equal(t, "Instamart", result.NormalizedName)
	assert.Equal(t, "Shopping", result.Category)
	assert.Equal(t, ConfidenceOverride, result.Confidence)

	result = sanitizer.Sanitize("SWIGGY FOOD ORDER")
	assert.Equal(t, "Swiggy", result.NormalizedName)

	result = sanitizer.Sanitize("SHARMA GENERAL STORE")
	assert.Equal(t, "Sharma Kirana", result.NormalizedName)

	result = sanitizer.Sanitize("CORNER CAFE")
	assert.Equal(t, "Corner Cafe", result.NormalizedName)
	assert.Equal(t, ConfidenceOverride, result.Confidence)

	result = sanitizer.Sanitize("CORNER CAFE MG ROAD")
	assert.Equal(t, ConfidenceFallback, result.Confidence)
}

func TestMerchantSanitizer_AddPattern(t *testing.T) {
	sanitizer := NewMerchantSanitizer()
	assert.Error(t, sanitizer.AddPattern("(", "x", "y"))
	assert.NoError(t, sanitizer.AddPattern(`CHAI\s*POINT`, "Chai Point", "Food & Dining"))

	result := sanitizer.Sanitize("CHAIPOINT KORAMANGALA")
	assert.Equal(t, "Chai Point", result.NormalizedName)
}

func BenchmarkMerchantSanitizer_Sanitize(b *testing.B) {
	sanitizer := NewMerchantSanitizer()
	inputs := []string{
		"UPI/412345678901/SWIGGY LTD/swiggy@icici/ICIC",
		"POS AMAZON PAY INDIA 123456",
		"SHARMA GENERAL STORE 456789",
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sanitizer.Sanitize(inputs[i%len(inputs)])
	}
}
