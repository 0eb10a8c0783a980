package catalog

import (
	"fmt"
	"math"
)

// Money is an amount in minor currency units (cents).
type Money int64

// FromMajor converts a decimal major-unit amount (e.g. 449.99) to Money,
// rounding to the nearest minor unit.
func FromMajor(v float64) Money {
	return Money(math.Round(v * 100))
}

// String formats the amount as major units with two decimals.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
