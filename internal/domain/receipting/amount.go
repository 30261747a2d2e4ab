package receipting

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// minus signs a user may type in front of an amount: ASCII, U+2212, full-width
const minusSigns = "-−－"

// ParseAmount turns user input such as "¥1,000", "1000円" or "１０００" into a
// yen amount. Every non-digit character is dropped before parsing.
func ParseAmount(raw string) (int64, error) {
	narrow := width.Narrow.String(strings.TrimSpace(raw))

	var digits strings.Builder
	for _, r := range narrow {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
			continue
		}
		// A sign ahead of the first digit means the user entered a negative amount.
		if digits.Len() == 0 && strings.ContainsRune(minusSigns, r) {
			return 0, ErrInvalidAmount
		}
	}

	if digits.Len() == 0 {
		return 0, ErrInvalidAmount
	}

	amount, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	return amount, nil
}
