package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"collapses whitespace", "  AMAZON   PAY\tINDIA ", "AMAZON PAY INDIA"},
		{"upi narration", "UPI/412345678901/SWIGGY LTD/swiggy@icici", "SWIGGY LTD"},
		{"neft with ifsc", "NEFT-HDFC0001234-ACME CORP", "ACME CORP"},
		{"imps rail tag", "IMPS 512345678901 JOHN DOE", "JOHN DOE"},
		{"reference number", "Salary   credit  REF NO 998877", "Salary credit"},
		{"nothing left falls back", "IMPS", "IMPS"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanDescription(tt.input))
		})
	}
}

func TestExtractMerchant(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"UPI/412345678901/SWIGGY LTD/swiggy@icici/ICIC", "SWIGGY LTD"},
		{"UPI/DR/412345678901/ZOMATO/YESB/zomato@ybl", "ZOMATO"},
		{"UPI-SWIGGY-SWIGGY@ICICI-ICIC0DC0099", "SWIGGY"},
		{"MMT/IMPS/512345678901/JOHN DOE/HDFC BANK", "JOHN DOE"},
		{"NEFT-HDFCN52025040104667985-ACME CORP-/FAST", "ACME CORP"},
		{"AMAZON PAY INDIA", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractMerchant(tt.input))
		})
	}
}
