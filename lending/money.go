package lending

import (
	"database/sql/driver"
	"fmt"
)

// Money is a fixed-point monetary amount with two fraction digits,
// stored as an integer number of cents. Fines never need fractions of a
// cent and must compare exactly, so floating point is avoided throughout.
type Money int64

// MoneyFromUnits creates a Money amount from whole currency units.
func MoneyFromUnits(units int64) Money {
	return Money(units * 100)
}

// Cents returns the amount as an integer number of cents.
func (m Money) Cents() int64 {
	return int64(m)
}

// String formats the amount with two fraction digits, e.g. "60.00".
func (m Money) String() string {
	sign := ""
	cents := int64(m)

	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MarshalJSON encodes the amount as a decimal string to keep it exact.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// Value implements driver.Valuer, storing the amount as integer cents.
func (m Money) Value() (driver.Value, error) {
	return int64(m), nil
}

// Scan implements sql.Scanner for integer cent columns.
func (m *Money) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = 0
		return nil
	case int64:
		*m = Money(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Money", src)
	}
}
