package dashboard

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const millionTokens = 1_000_000

// FormatCount renders an integer with grouping separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// FormatTokens abbreviates a token count: 2 decimals with M at or above one
// million, whole thousands with K below.
func FormatTokens(n int64) string {
	if n >= millionTokens {
		return fmt.Sprintf("%.2fM", float64(n)/millionTokens)
	}
	return fmt.Sprintf("%.0fK", float64(n)/1000)
}

// FormatUSD renders a dollar amount with grouping and 2 decimals.
func FormatUSD(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	w, err := decimal.NewFromString(whole)
	if err != nil {
		return sign + "$" + d.StringFixed(2)
	}
	return sign + "$" + humanize.Comma(w.IntPart()) + "." + frac
}
