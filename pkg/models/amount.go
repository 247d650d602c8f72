package models

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	// AmountDecimals is the platform token's decimal precision.
	AmountDecimals = 18

	// FeeDenominator is the basis-point denominator for fee rates.
	FeeDenominator = 10000
)

// minorFactor is 10^AmountDecimals.
var minorFactor = new(big.Int).Exp(big.NewInt(10), big.NewInt(AmountDecimals), nil)

// Amount is a token amount in minor units (10^-18 of one token). It wraps a
// big integer because token supplies exceed what float64 or int64 can carry
// without loss. The zero value is zero tokens.
type Amount struct {
	v *big.Int
}

// ZeroAmount returns an amount of zero tokens.
func ZeroAmount() Amount {
	return Amount{v: new(big.Int)}
}

// AmountFromMinorUnits wraps a minor-unit integer as an Amount. The value is
// copied; the caller keeps ownership of v.
func AmountFromMinorUnits(v *big.Int) Amount {
	if v == nil {
		return ZeroAmount()
	}
	return Amount{v: new(big.Int).Set(v)}
}

// AmountFromTokens converts a whole-token count to an Amount.
func AmountFromTokens(tokens int64) Amount {
	v := new(big.Int).Mul(big.NewInt(tokens), minorFactor)
	return Amount{v: v}
}

// ParseAmount parses a decimal token string like "12.5" or "0.000001" into
// an Amount. More than AmountDecimals fractional digits is an error rather
// than silent truncation.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > AmountDecimals {
		return Amount{}, fmt.Errorf("amount %q has more than %d decimal places", s, AmountDecimals)
	}
	frac += strings.Repeat("0", AmountDecimals-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid amount %q", s)
	}
	if negative {
		v.Neg(v)
	}
	return Amount{v: v}, nil
}

// ParseAmountMinor parses a base-10 minor-unit string, the form amounts take
// in storage and on the wire to the chain.
func ParseAmountMinor(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid minor-unit amount %q", s)
	}
	return Amount{v: v}, nil
}

// MinorUnits returns a copy of the amount in minor units.
func (a Amount) MinorUnits() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.v)
}

// MinorString returns the amount as a base-10 minor-unit string.
func (a Amount) MinorString() string {
	if a.v == nil {
		return "0"
	}
	return a.v.String()
}

// String renders the amount as a decimal token string with trailing zeros
// trimmed, e.g. "12.5" or "0.000001".
func (a Amount) String() string {
	v := a.MinorUnits()
	sign := ""
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}

	whole, frac := new(big.Int).QuoRem(v, minorFactor, new(big.Int))
	if frac.Sign() == 0 {
		return sign + whole.String()
	}

	fracStr := fmt.Sprintf("%0*s", AmountDecimals, frac.String())
	fracStr = strings.TrimRight(fracStr, "0")
	return sign + whole.String() + "." + fracStr
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{v: new(big.Int).Add(a.MinorUnits(), b.MinorUnits())}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{v: new(big.Int).Sub(a.MinorUnits(), b.MinorUnits())}
}

// MulQuantity returns the amount multiplied by an integer quantity.
func (a Amount) MulQuantity(quantity int64) Amount {
	return Amount{v: new(big.Int).Mul(a.MinorUnits(), big.NewInt(quantity))}
}

// SplitFee splits the amount into a fee portion and a remainder at the given
// basis-point rate. The fee truncates toward zero and the remainder absorbs
// the rounding, so fee + remainder == a exactly for every input.
func (a Amount) SplitFee(feeBps int64) (fee, remainder Amount) {
	v := a.MinorUnits()
	f := new(big.Int).Mul(v, big.NewInt(feeBps))
	f.Quo(f, big.NewInt(FeeDenominator))
	return Amount{v: f}, Amount{v: new(big.Int).Sub(v, f)}
}

// Cmp compares a and b, returning -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.MinorUnits().Cmp(b.MinorUnits())
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}

// IsPositive reports whether the amount is greater than zero.
func (a Amount) IsPositive() bool {
	return a.v != nil && a.v.Sign() > 0
}

// MarshalJSON renders the amount as a decimal token string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON parses a decimal token string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
