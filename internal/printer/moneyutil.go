package printer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatPrice returns a price with thousand separators and its currency.
// Examples: "0 JPY", "1,800 JPY", "-12,345.5 JPY".
func FormatPrice(price decimal.Decimal, currency string) string {
	s := price.String()

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := sign + b.String()
	if hasFrac {
		out += "." + frac
	}
	if currency != "" {
		out += " " + currency
	}
	return out
}
