package utils

import (
	"math/big"
	"strings"
)

func TruncateString(str string, num int) string {
	if len(str) <= num {
		return str
	}
	if num <= 3 {
		return str[:num]
	}
	return str[0:num-3] + "..."
}

// ShortAddress keeps the head and tail of a long address.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// AddCommas groups the integer digits of a formatted number in thousands.
func AddCommas(s string) string {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign, intPart = "-", intPart[1:]
	}
	if len(intPart) <= 3 {
		return s
	}

	groups := make([]string, 0, len(intPart)/3+1)
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	out := sign + intPart + "," + strings.Join(groups, ",")
	if hasFrac {
		out += "." + frac
	}
	return out
}

// FormatUnits renders an integer amount of base units as a decimal with
// display fraction digits. Extra digits are truncated, never rounded up.
// A nil amount renders as "-".
func FormatUnits(v *big.Int, decimals, display int) string {
	if v == nil {
		return "-"
	}
	if decimals <= 0 {
		return AddCommas(v.String())
	}
	if display > decimals {
		display = decimals
	}

	abs := new(big.Int).Abs(v)
	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, base, new(big.Int))

	sign := ""
	if v.Sign() < 0 {
		sign = "-"
	}
	out := sign + whole.String()
	if display > 0 {
		digits := frac.String()
		digits = strings.Repeat("0", decimals-len(digits)) + digits
		out += "." + digits[:display]
	}
	return AddCommas(out)
}

// FormatAmount is FormatUnits followed by the unit symbol.
func FormatAmount(v *big.Int, decimals, display int, symbol string) string {
	s := FormatUnits(v, decimals, display)
	if v == nil || symbol == "" {
		return s
	}
	return s + " " + symbol
}

// UnitsToFloat64 converts base units to a float for charts.
func UnitsToFloat64(v *big.Int, decimals int) float64 {
	if v == nil {
		return 0
	}
	f := new(big.Float).SetInt(v)
	if decimals > 0 {
		base := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
		f.Quo(f, base)
	}
	val, _ := f.Float64()
	return val
}
