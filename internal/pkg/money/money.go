// Package money holds the minor-unit arithmetic used for booking prices.
package money

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ApplyDiscount returns subtotal × (1 − percent/100) rounded half-up to minor units.
// Percent outside [0,100] is clamped.
func ApplyDiscount(subtotal int64, percent float64) int64 {
	if percent <= 0 {
		return subtotal
	}
	if percent >= 100 {
		return 0
	}

	// shortest decimal form, so 7.3 is 73/10 rather than its binary neighbour
	pct, ok := new(big.Rat).SetString(strconv.FormatFloat(percent, 'f', -1, 64))
	if !ok {
		return subtotal
	}
	factor := new(big.Rat).Sub(big.NewRat(1, 1), new(big.Rat).Quo(pct, big.NewRat(100, 1)))
	total := new(big.Rat).Mul(new(big.Rat).SetInt64(subtotal), factor)
	return roundHalfUp(total)
}

func roundHalfUp(r *big.Rat) int64 {
	// floor(r + 1/2) for non-negative r
	shifted := new(big.Rat).Add(r, big.NewRat(1, 2))
	q := new(big.Int).Quo(shifted.Num(), shifted.Denom())
	return q.Int64()
}

// FormatMinor renders minor units as a decimal string with two places ("4000" -> "40.00").
func FormatMinor(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

// Equal compares two decimal strings numerically ("10" equals "10.00").
func Equal(a, b string) bool {
	ar, ok := new(big.Rat).SetString(strings.TrimSpace(a))
	if !ok {
		return false
	}
	br, ok := new(big.Rat).SetString(strings.TrimSpace(b))
	if !ok {
		return false
	}
	return ar.Cmp(br) == 0
}
