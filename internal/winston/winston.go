// Package winston handles amounts of the network's native token. Winston is
// the smallest denomination; 1 AR = 1e12 winston. Amounts cross the wire as
// integer strings, so parsing is strict: no signs, no decimals, no blanks.
package winston

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// WinstonPerAR is the number of winston in one AR.
var WinstonPerAR = decimal.New(1, 12)

// amountPattern matches the canonical wire shape of a winston amount.
var amountPattern = regexp.MustCompile(`^\d+$`)

// Amount is a non-negative winston quantity.
type Amount struct {
	value *big.Int
}

// Zero returns a zero amount.
func Zero() Amount {
	return Amount{value: big.NewInt(0)}
}

// FromInt64 creates an amount from a raw winston count.
func FromInt64(w int64) (Amount, error) {
	if w < 0 {
		return Amount{}, fmt.Errorf("winston amount cannot be negative: %d", w)
	}
	return Amount{value: big.NewInt(w)}, nil
}

// Parse parses a winston amount from its wire string form. The input is
// trimmed first; after trimming it must be a nonzero-length digit string.
func Parse(s string) (Amount, error) {
	trimmed := strings.TrimSpace(s)
	if !amountPattern.MatchString(trimmed) {
		return Amount{}, fmt.Errorf("invalid amount %q: must be a positive integer string of winston", s)
	}

	value, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	return Amount{value: value}, nil
}

// ParsePositive is Parse with an additional nonzero requirement, the shape
// the mint endpoint demands.
func ParsePositive(s string) (Amount, error) {
	amount, err := Parse(s)
	if err != nil {
		return Amount{}, err
	}
	if amount.IsZero() {
		return Amount{}, fmt.Errorf("invalid amount %q: must be a positive integer string of winston", s)
	}
	return amount, nil
}

// FromAR converts an AR-denominated decimal into winston, truncating any
// fraction below one winston.
func FromAR(ar decimal.Decimal) (Amount, error) {
	if ar.IsNegative() {
		return Amount{}, fmt.Errorf("AR amount cannot be negative: %s", ar)
	}
	w := ar.Mul(WinstonPerAR).Truncate(0)
	return Amount{value: w.BigInt()}, nil
}

// AR returns the amount denominated in AR.
func (a Amount) AR() decimal.Decimal {
	return decimal.NewFromBigInt(a.big(), 0).Div(WinstonPerAR)
}

// Winston returns a copy of the raw winston value.
func (a Amount) Winston() *big.Int {
	return new(big.Int).Set(a.big())
}

// String renders the wire form.
func (a Amount) String() string {
	return a.big().String()
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.big().Sign() == 0
}

// Cmp compares two amounts: -1 if a < b, 0 if equal, 1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.big().Cmp(b.big())
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{value: new(big.Int).Add(a.big(), b.big())}
}

// Sub returns a - b, failing rather than going negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.big().Cmp(b.big()) < 0 {
		return Amount{}, fmt.Errorf("cannot subtract %s winston from %s winston", b, a)
	}
	return Amount{value: new(big.Int).Sub(a.big(), b.big())}, nil
}

func (a Amount) big() *big.Int {
	if a.value == nil {
		return big.NewInt(0)
	}
	return a.value
}
