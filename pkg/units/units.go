// Package units converts between human-entered decimal amounts and the
// integer base units the trading contract understands. Conversions are
// exact; amounts with more precision than the token carries are rejected
// rather than rounded.
package units

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Parse converts a decimal amount string into base units for a token with
// the given number of decimals. Negative amounts and amounts with excess
// precision are rejected.
func Parse(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q is negative", amount)
	}

	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", amount, decimals)
	}
	return shifted.BigInt(), nil
}

// Format renders base units as a decimal string, trimming trailing zeros.
func Format(amount *big.Int, decimals int32) string {
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// IsPositive reports whether the amount is strictly greater than zero.
func IsPositive(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0
}
