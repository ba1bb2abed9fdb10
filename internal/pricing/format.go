package pricing

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var vnPrinter = message.NewPrinter(language.Vietnamese)

// FormatVND renders amount the way the storefront shows prices, e.g. "100.000 ₫".
func FormatVND(amount int64) string {
	return vnPrinter.Sprintf("%d ₫", amount)
}
