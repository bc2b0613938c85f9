package pricing

import (
	"fmt"
	"math/big"
	"strings"
)

// TokenDecimals is the fixed-point width of both currencies.
const TokenDecimals = 18

// ParseAmount converts a user-supplied decimal string into base units
// without going through floating point. The fractional part is right-padded
// to the decimal width; extra fractional digits are truncated.
func ParseAmount(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("negative amount %q", s)
	}

	whole := s
	frac := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole, frac = s[:idx], s[idx+1:]
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, fmt.Errorf("malformed amount %q", s)
	}

	if len(frac) > decimals {
		frac = frac[:decimals]
	}
	frac += strings.Repeat("0", decimals-len(frac))

	wholeInt, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	wholeInt.Mul(wholeInt, scale)

	if frac != "" {
		fracInt, ok := new(big.Int).SetString(frac, 10)
		if !ok {
			return nil, fmt.Errorf("malformed amount %q", s)
		}
		wholeInt.Add(wholeInt, fracInt)
	}
	return wholeInt, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
