package receipting

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

var invoiceNumberPattern = regexp.MustCompile(`^T[0-9]{13}$`)

// NormalizeInvoiceNumber folds full-width characters, drops hyphens and spaces
// and upper-cases the leading T of a qualified invoice registration number.
func NormalizeInvoiceNumber(s string) string {
	s = width.Narrow.String(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	return strings.ToUpper(s)
}

// ValidInvoiceNumber reports whether s is a registration number of the form
// T followed by 13 digits.
func ValidInvoiceNumber(s string) bool {
	return invoiceNumberPattern.MatchString(s)
}
