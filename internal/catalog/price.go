// ABOUTME: Price parsing and formatting in cents
// ABOUTME: Accepts whole and two-decimal amounts, renders with thousands separators

package catalog

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidPrice is returned when a price input cannot be parsed or is
// negative.
var ErrInvalidPrice = errors.New("invalid price")

// ParsePrice converts user input like "12500", "12,500", or "99.50" to
// cents. At most two decimal places are accepted; negative amounts are
// rejected.
func ParsePrice(input string) (int64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(input), ",", "")
	if s == "" || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidPrice
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidPrice
	}

	cents := units * 100
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, ErrInvalidPrice
		}
		if len(frac) == 1 {
			frac += "0"
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, ErrInvalidPrice
		}
		cents += f
	}
	return cents, nil
}

// FormatPrice renders cents as a display amount, e.g. 1250000 -> "12,500".
// Whole amounts omit the decimal part.
func FormatPrice(cents int64) string {
	units := cents / 100
	rem := cents % 100

	s := strconv.FormatInt(units, 10)
	var sb strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	if rem != 0 {
		sb.WriteString(".")
		if rem < 10 {
			sb.WriteString("0")
		}
		sb.WriteString(strconv.FormatInt(rem, 10))
	}
	return sb.String()
}
