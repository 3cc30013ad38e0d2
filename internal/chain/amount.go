package chain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	roierr "github.com/polar0/roi-tracker/pkg/errors"
)

// Decimal places of the assets the tracker reads.
const (
	ETHDecimals  = 18
	WETHDecimals = 18
)

// Amount is an on-chain quantity in the asset's smallest unit together with its
// decimal places. Values never pass through binary floating point.
type Amount struct {
	Value    *big.Int
	Decimals int
}

// NewAmount returns an Amount; a nil value is treated as zero.
func NewAmount(value *big.Int, decimals int) Amount {
	if value == nil {
		value = new(big.Int)
	}
	return Amount{Value: new(big.Int).Set(value), Decimals: decimals}
}

// ZeroAmount returns a zero Amount with the given decimal places.
func ZeroAmount(decimals int) Amount {
	return Amount{Value: new(big.Int), Decimals: decimals}
}

// MustParseAmount parses a human-readable amount and panics on malformed input.
// Intended for constants and tests.
func MustParseAmount(s string, decimals int) Amount {
	v, err := ParseDecimalAmount(s, decimals, roierr.ErrInvalidAmount)
	if err != nil {
		panic(err)
	}
	return Amount{Value: v, Decimals: decimals}
}

// IsZero reports whether the amount is zero (or unset).
func (a Amount) IsZero() bool {
	return a.Value == nil || a.Value.Sign() == 0
}

// Add returns a+b. Both operands must share the same decimal places.
func (a Amount) Add(b Amount) Amount {
	return Amount{Value: new(big.Int).Add(a.bigOrZero(), b.bigOrZero()), Decimals: a.Decimals}
}

// Sub returns a-b. Both operands must share the same decimal places.
func (a Amount) Sub(b Amount) Amount {
	return Amount{Value: new(big.Int).Sub(a.bigOrZero(), b.bigOrZero()), Decimals: a.Decimals}
}

// Decimal returns the amount as an exact decimal in whole units.
func (a Amount) Decimal() decimal.Decimal {
	//nolint:gosec // G115: decimals are small positive constants
	return decimal.NewFromBigInt(a.bigOrZero(), -int32(a.Decimals))
}

// String formats the amount in whole units with trailing zeros trimmed.
func (a Amount) String() string {
	return FormatSignedDecimalAmount(a.bigOrZero(), a.Decimals)
}

func (a Amount) bigOrZero() *big.Int {
	if a.Value == nil {
		return new(big.Int)
	}
	return a.Value
}

// ParseDecimalAmount parses a decimal amount string to big.Int with the given decimal places.
// For example, "1.5" with 18 decimals returns 1500000000000000000.
//
//nolint:gocognit,gocyclo // Decimal parsing requires sequential validation steps
func ParseDecimalAmount(amount string, decimalPlaces int, invalidAmountErr error) (*big.Int, error) {
	if amount == "" {
		return nil, invalidAmountErr
	}

	if strings.HasPrefix(amount, "-") {
		return nil, invalidAmountErr
	}

	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return nil, invalidAmountErr
	}

	intPart := parts[0]
	decPart := ""
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if intPart == "" {
		intPart = "0"
	}
	intVal, ok := new(big.Int).SetString(intPart, 10)
	if !ok {
		return nil, invalidAmountErr
	}

	multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimalPlaces)), nil)
	result := new(big.Int).Mul(intVal, multiplier)

	if decPart != "" {
		for _, c := range decPart {
			if c < '0' || c > '9' {
				return nil, invalidAmountErr
			}
		}

		// Pad or truncate to the asset's precision
		for len(decPart) < decimalPlaces {
			decPart += "0"
		}
		decPart = decPart[:decimalPlaces]

		if decPart != "" {
			decVal, ok := new(big.Int).SetString(decPart, 10)
			if !ok {
				return nil, invalidAmountErr
			}
			result = result.Add(result, decVal)
		}
	}

	return result, nil
}

// FormatDecimalAmount converts a big.Int to a human-readable string with the given decimal places.
// Trailing zeros after the decimal point are removed.
// For example, 1500000000000000000 with 18 decimals returns "1.5".
func FormatDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}
	if decimalPlaces == 0 {
		return amount.String()
	}

	str := amount.String()

	for len(str) <= decimalPlaces {
		str = "0" + str
	}

	decimalPos := len(str) - decimalPlaces
	result := str[:decimalPos] + "." + str[decimalPos:]

	for len(result) > 1 && result[len(result)-1] == '0' && result[len(result)-2] != '.' {
		result = result[:len(result)-1]
	}

	return result
}

// FormatSignedDecimalAmount formats a possibly-negative amount with the correct decimals.
// For negative values, it formats the absolute value then prepends "-".
func FormatSignedDecimalAmount(amount *big.Int, decimalPlaces int) string {
	if amount == nil {
		return "0"
	}
	if amount.Sign() >= 0 {
		return FormatDecimalAmount(amount, decimalPlaces)
	}
	abs := new(big.Int).Abs(amount)
	return "-" + FormatDecimalAmount(abs, decimalPlaces)
}

// ExpandDecimals rounds a whole-unit value for display: six places when
// detailed, three otherwise.
func ExpandDecimals(d decimal.Decimal, detailed bool) string {
	if detailed {
		return d.Round(6).String()
	}
	return d.Round(3).String()
}
