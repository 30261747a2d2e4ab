package receipting

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var yenPrinter = message.NewPrinter(language.Japanese)

// FormatYen formats an amount the way it is printed on a receipt, e.g. ¥1,000
func FormatYen(amount int64) string {
	return yenPrinter.Sprintf("¥%d", amount)
}
