package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nagarjunveerapu/runway/internal/domain/ingest/model"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		isEuropean bool
		want       string
		wantErr    error
	}{
		{"plain", "1250.00", false, "1250", nil},
		{"western grouping", "1,234.56", false, "1234.56", nil},
		{"indian grouping with rupee", "₹ 1,23,456.78", false, "123456.78", nil},
		{"rs prefix", "Rs. 500", false, "500", nil},
		{"inr prefix", "INR 2,000.00", false, "2000", nil},
		{"negative", "-250.00", false, "-250", nil},
		{"trailing minus", "250.00-", false, "-250", nil},
		{"parentheses", "(100.00)", false, "-100", nil},
		{"dr suffix", "500.00 Dr", false, "-500", nil},
		{"cr suffix", "500.00 CR", false, "500", nil},
		{"european", "1.234,56", true, "1234.56", nil},
		{"european negative", "-12,50 €", true, "-12.5", nil},
		{"letters", "abc", false, "", ErrInvalidAmount},
		{"empty", "   ", false, "", ErrEmptyAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input, tt.isEuropean)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestSuffixType(t *testing.T) {
	assert.Equal(t, model.Credit, SuffixType("1,000.00 Cr"))
	assert.Equal(t, model.Debit, SuffixType("1,000.00DR"))
	assert.Equal(t, model.TxnType(""), SuffixType("1,000.00"))
}

func TestIsZeroAmount(t *testing.T) {
	assert.True(t, IsZeroAmount("", false))
	assert.True(t, IsZeroAmount("-", false))
	assert.True(t, IsZeroAmount("0.00", false))
	assert.False(t, IsZeroAmount("0.01", false))
}

func TestFindAmountTokens(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "amount and balance",
			line: "01/10/2025 SWIGGY BANGALORE 1,250.00 45,000.50",
			want: []string{"1,250.00", "45,000.50"},
		},
		{
			name: "withdrawal deposit balance",
			line: "02-10-2025 NEFT SALARY 0.00 85,000.00 1,30,000.50",
			want: []string{"0.00", "85,000.00", "1,30,000.50"},
		},
		{
			name: "cr suffix kept with token",
			line: "03 Oct 2025 REFUND AMAZON 499.00 Cr",
			want: []string{"499.00 Cr"},
		},
		{
			name: "dotted date is not an amount",
			line: "04.10.2025 ATM WITHDRAWAL 2000.00",
			want: []string{"2000.00"},
		},
		{
			name: "no amounts",
			line: "continued narration line",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := FindAmountTokens(tt.line)
			got := make([]string, 0, len(tokens))
			for _, tok := range tokens {
				got = append(got, tok.Raw)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
