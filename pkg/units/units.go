package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the fixed scale between the base unit (wei) and the display unit (ether).
const Decimals = 18

// ErrInvalidAmount is returned for amounts that are empty, unparsable,
// non-positive or finer than one base unit.
var ErrInvalidAmount = errors.New("invalid amount")

// ToWei converts a display-unit decimal string to base units.
func ToWei(amount string) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	wei := d.Shift(Decimals)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, Decimals)
	}
	return wei.BigInt(), nil
}

// ParsePositive is ToWei that additionally rejects zero.
func ParsePositive(amount string) (*big.Int, error) {
	wei, err := ToWei(amount)
	if err != nil {
		return nil, err
	}
	if wei.Sign() <= 0 {
		return nil, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return wei, nil
}

// FromWei converts base units to the display unit.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -Decimals)
}

// EtherString renders wei with no trailing zeros, e.g. "2.5".
func EtherString(wei *big.Int) string {
	return FromWei(wei).String()
}

// EtherFixed renders wei with a fixed number of decimal places.
func EtherFixed(wei *big.Int, places int32) string {
	return FromWei(wei).StringFixed(places)
}

// Float converts wei to a float64 display value; only for ratios and graphs.
func Float(wei *big.Int) float64 {
	f, _ := FromWei(wei).Float64()
	return f
}
