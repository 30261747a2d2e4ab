package receipting

import "time"

const (
	dateKeyLayout    = "20060102"
	issuedDateLayout = "2006年01月02日"
)

// DateKey returns the compact calendar-day key that scopes the daily sequence.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// IssuedDate returns the date as printed on the receipt.
func IssuedDate(t time.Time) string {
	return t.Format(issuedDateLayout)
}

// ValidDateKey reports whether s is a well-formed date key.
func ValidDateKey(s string) bool {
	if len(s) != len(dateKeyLayout) {
		return false
	}
	_, err := time.Parse(dateKeyLayout, s)
	return err == nil
}
