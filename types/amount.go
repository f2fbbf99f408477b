// Package types provides common types used across streamledger.
package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/holiman/uint256"
)

// Token amounts are 256-bit unsigned integers denominated in the token's
// smallest unit. All arithmetic is integer-only, never floating point.
//
// Per-second release rates carry an extra fixed-point scale of 1e18 so
// that slow streams (small amounts over long durations) do not collapse
// to a zero rate under integer division.

// RateScaleDecimals is the number of fixed-point decimals carried by a
// per-second rate on top of the token's own decimals.
const RateScaleDecimals = 18

// MaxTokenDecimals is the highest token precision the ledger accepts.
const MaxTokenDecimals = 18

// RateScale is the fixed-point scale factor for per-second rates (1e18).
var RateScale = uint256.NewInt(1e18)

// NewAmount returns a fresh amount holding v.
func NewAmount(v uint64) *uint256.Int { return uint256.NewInt(v) }

// ZeroAmount returns a fresh zero amount.
func ZeroAmount() *uint256.Int { return new(uint256.Int) }

// CloneAmount returns an independent copy of a. A nil input yields zero.
func CloneAmount(a *uint256.Int) *uint256.Int {
	if a == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(a)
}

// ParseAmount parses a base-10 integer string into an amount.
func ParseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	a, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("types: parse amount %q: %w", s, err)
	}
	return a, nil
}

// MustAmount is like ParseAmount but panics on error. Use for literals.
func MustAmount(s string) *uint256.Int {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountString renders an amount as a base-10 integer string.
// Stores persist amounts in this form.
func AmountString(a *uint256.Int) string {
	if a == nil {
		return "0"
	}
	return a.Dec()
}

// FitsUint128 reports whether a fits in 128 bits. Withdrawal results are
// narrowed to this range at the interface boundary.
func FitsUint128(a *uint256.Int) bool {
	return a != nil && a.BitLen() <= 128
}

// FormatUnits renders an amount as a human-readable decimal string at the
// given token precision, e.g. FormatUnits(1500000, 6) == "1.5".
func FormatUnits(a *uint256.Int, decimals uint8) string {
	if a == nil {
		return "0"
	}
	var coeff apd.BigInt
	coeff.SetMathBigInt(a.ToBig())
	d := apd.NewWithBigInt(&coeff, -int32(decimals))
	d.Reduce(d)
	return d.Text('f')
}

// ParseUnits parses a human-readable decimal string at the given token
// precision into a smallest-unit amount. It rejects values with more
// fractional digits than the token supports and values that do not fit
// in 256 bits.
func ParseUnits(s string, decimals uint8) (*uint256.Int, error) {
	d, _, err := apd.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("types: parse units %q: %w", s, err)
	}
	if d.Negative {
		return nil, fmt.Errorf("types: parse units %q: negative amount", s)
	}

	shift := int32(decimals) + d.Exponent
	if shift < 0 {
		return nil, fmt.Errorf("types: parse units %q: more than %d fractional digits", s, decimals)
	}

	v := new(big.Int).Set(d.Coeff.MathBigInt())
	if shift > 0 {
		exp := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(shift)), nil)
		v.Mul(v, exp)
	}

	a, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("types: parse units %q: amount exceeds 256 bits", s)
	}
	return a, nil
}
