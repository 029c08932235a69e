// Package units converts between the base-unit decimal strings shown to the
// user and the smallest-unit integers the ledger works with.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeAmount    = errors.New("negative amount")
	ErrPrecisionExceeded = errors.New("amount exceeds asset precision")
	ErrAmountOverflow    = errors.New("amount does not fit in uint256")
)

// maxDigits is the decimal width of the largest uint256.
const maxDigits = 78

// ToSmallest converts value, expressed in whole units, into smallest units
// for an asset with the given decimals. The conversion is exact: digits
// beyond the asset's precision are rejected, never truncated.
func ToSmallest(value string, decimals int32) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.ContainsAny(value, "eE") {
		return nil, fmt.Errorf("%w: exponent notation in %q", ErrInvalidAmount, value)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, value)
	}

	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %s has more than %d decimals", ErrPrecisionExceeded, value, decimals)
	}
	if int64(scaled.NumDigits())+int64(scaled.Exponent()) > maxDigits {
		return nil, fmt.Errorf("%w: %s", ErrAmountOverflow, value)
	}
	n := scaled.BigInt()
	if _, overflow := uint256.FromBig(n); overflow {
		return nil, fmt.Errorf("%w: %s", ErrAmountOverflow, value)
	}
	return n, nil
}

// FromSmallest renders v as a whole-unit decimal string without trailing
// zeros. A nil value renders as "0".
func FromSmallest(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}

// IsPositive reports whether value parses as a decimal strictly above zero.
// Exponent notation is not an amount.
func IsPositive(value string) bool {
	value = strings.TrimSpace(value)
	if strings.ContainsAny(value, "eE") {
		return false
	}
	d, err := decimal.NewFromString(value)
	return err == nil && d.Sign() > 0
}
