package portval

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Quantization places used across the engine.
const (
	UnitPlaces     int32 = 8
	CurrencyPlaces int32 = 2
	WeightPlaces   int32 = 8

	// divisionPlaces is the guard precision used before quantizing a quotient.
	divisionPlaces int32 = 20
)

// Amount wraps decimal.Decimal for prices, units, weights and values.
// JSON marshaling emits an exact JSON number, and storage uses canonical
// text so no binary float ever touches a stored quantity.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps a decimal.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{d}
}

// NewAmountFromInt creates an Amount from an int64.
func NewAmountFromInt(i int64) Amount {
	return Amount{decimal.NewFromInt(i)}
}

// ParseAmount parses a decimal string.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, Errorf(ErrCodeInvalidInput, "invalid decimal %q", s)
	}
	return Amount{d}, nil
}

// MustAmount is like ParseAmount but panics on error.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err.Error())
	}
	return a
}

// MarshalJSON outputs as a JSON number (not a string).
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted strings.
func (a *Amount) UnmarshalJSON(data []byte) error {
	return a.Decimal.UnmarshalJSON(data)
}

// Scan implements sql.Scanner, reading TEXT, INTEGER or REAL columns.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		a.Decimal = decimal.Zero
		return nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("scan amount %q: %w", v, err)
		}
		a.Decimal = d
		return nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return fmt.Errorf("scan amount %q: %w", v, err)
		}
		a.Decimal = d
		return nil
	case int64:
		a.Decimal = decimal.NewFromInt(v)
		return nil
	case float64:
		d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', -1, 64))
		if err != nil {
			return err
		}
		a.Decimal = d
		return nil
	}
	return a.Decimal.Scan(src)
}

// Value implements driver.Valuer for database writes.
func (a Amount) Value() (driver.Value, error) {
	return a.String(), nil
}

// RoundUnits quantizes a unit quantity half-up to UnitPlaces.
func RoundUnits(d decimal.Decimal) decimal.Decimal {
	return d.Round(UnitPlaces)
}

// RoundCurrency quantizes a monetary total half-up to CurrencyPlaces.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// RoundWeight quantizes a weight half-up to WeightPlaces.
func RoundWeight(d decimal.Decimal) decimal.Decimal {
	return d.Round(WeightPlaces)
}

// quotient divides with guard digits so the later quantization sees the true
// rounding digit.
func quotient(num, den decimal.Decimal) decimal.Decimal {
	return num.DivRound(den, divisionPlaces)
}

// fixedText renders a decimal with a fixed number of places; ledger rows use
// it so identical deltas compare equal as text.
func fixedText(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
