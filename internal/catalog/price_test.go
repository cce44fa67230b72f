// ABOUTME: Tests for price parsing and formatting
// ABOUTME: Table tests over accepted inputs, rejects, and separator rendering

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"12500", 1250000, false},
		{"12,500", 1250000, false},
		{" 99 ", 9900, false},
		{"99.50", 9950, false},
		{"99.5", 9950, false},
		{"0", 0, false},
		{"0.05", 5, false},
		{"", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
		{"9.999", 0, true},
		{"9.", 0, true},
		{"1.2.3", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPrice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{1250000, "12,500"},
		{9900, "99"},
		{9950, "99.50"},
		{5, "0.05"},
		{0, "0"},
		{100000000, "1,000,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPrice(tt.cents))
	}
}

func TestPriceRoundTrip(t *testing.T) {
	for _, input := range []string{"12,500", "99.50", "0.05", "1,000,000"} {
		cents, err := ParsePrice(input)
		require.NoError(t, err)
		back, err := ParsePrice(FormatPrice(cents))
		require.NoError(t, err)
		assert.Equal(t, cents, back, "round trip for %s", input)
	}
}
