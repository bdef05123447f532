package market

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD formats a USD amount for chat messages:
//   - thousand separators on the integer part;
//   - >= 1000 shows 2 decimal places, >= 1 shows 4;
//   - < 1 shows 4 significant figures in plain notation (0.00001234).
func FormatUSD(d decimal.Decimal) string {
	f := d.InexactFloat64()
	if f < 0 {
		return "-" + FormatUSD(d.Neg())
	}
	if f == 0 {
		return "0"
	}
	if f >= 1 {
		prec := 4
		if f >= 1000 {
			prec = 2
		}
		s := strconv.FormatFloat(f, 'f', prec, 64)
		intPart, frac, _ := strings.Cut(s, ".")
		if frac != "" {
			frac = "." + frac
		}
		return groupThousands(intPart) + frac
	}

	digits := 4 - int(math.Floor(math.Log10(f))) - 1
	return strconv.FormatFloat(f, 'f', digits, 64)
}

func groupThousands(intPart string) string {
	n := len(intPart)
	if n <= 3 {
		return intPart
	}
	var b strings.Builder
	lead := n % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String()
}
