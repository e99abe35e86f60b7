package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2025-10-01", "2025-10-01"},
		{"2025/10/01", "2025-10-01"},
		{"2025-10-01 14:22:10", "2025-10-01"},
		{"01/10/2025", "2025-10-01"},
		{"13/10/2025", "2025-10-13"},
		{"1/10/2025", "2025-10-01"},
		{"13/10/25", "2025-10-13"},
		{"01-10-2025", "2025-10-01"},
		{"01.10.2025", "2025-10-01"},
		{"05 Oct 2025", "2025-10-05"},
		{"05-OCT-2025", "2025-10-05"},
		{"5-Oct-25", "2025-10-05"},
		{"05 October 2025", "2025-10-05"},
		{"Oct 5, 2025", "2025-10-05"},
		{"10/13/2025", "2025-10-13"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "garbage", "32/13/2025", "Opening Balance"} {
		_, err := NormalizeDate(input)
		assert.ErrorIs(t, err, ErrInvalidDate, input)
	}
}

func TestParseFlexibleDate_PreferredFormat(t *testing.T) {
	// 03/04/2025 is ambiguous; a month-first preference wins over the default
	got, err := ParseFlexibleDate("03/04/2025", "MM/DD/YYYY", nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04", got.Format("2006-01-02"))

	got, err = ParseFlexibleDate("03/04/2025", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-04-03", got.Format("2006-01-02"))
}

func TestLeadingDate(t *testing.T) {
	assert.Equal(t, "01/10/2025", LeadingDate("01/10/2025 UPI/SWIGGY 250.00 1,000.00"))
	assert.Equal(t, "05 Oct 2025", LeadingDate("  05 Oct 2025 NETFLIX 649.00"))
	assert.Equal(t, "2025-10-01", LeadingDate("2025-10-01 salary"))
	assert.Empty(t, LeadingDate("Opening balance 1,000.00"))
	assert.Empty(t, LeadingDate("123456789012 account"))
}

func TestDetectDateFormat(t *testing.T) {
	assert.Equal(t, "DD/MM/YYYY", DetectDateFormat([]string{"01/02/2025", "15/02/2025"}))
	assert.Equal(t, "MM/DD/YYYY", DetectDateFormat([]string{"01/02/2025", "02/15/2025"}))
	assert.Equal(t, "DD-MM-YYYY", DetectDateFormat([]string{"", "03-04-2025"}))
	assert.Equal(t, "YYYY-MM-DD", DetectDateFormat([]string{"2025-02-01"}))
	assert.Equal(t, "", DetectDateFormat([]string{"05 Oct 2025"}))
}
