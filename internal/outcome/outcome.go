// Package outcome defines the result every rigcart mutator returns. Mutators
// never fail: anything other than OK means the request was ignored and state
// is unchanged.
package outcome

import (
	"encoding/json"
	"fmt"
)

// Outcome reports what a mutation did.
type Outcome int

const (
	OK Outcome = iota
	CapacityExceeded
	SlotOccupied
	CategoryMismatch
	UnknownCategory
	NotFound
	StockExceeded
	InvalidQuantity
	InvalidName
)

var names = map[Outcome]string{
	OK:               "ok",
	CapacityExceeded: "capacity_exceeded",
	SlotOccupied:     "slot_occupied",
	CategoryMismatch: "category_mismatch",
	UnknownCategory:  "unknown_category",
	NotFound:         "not_found",
	StockExceeded:    "stock_exceeded",
	InvalidQuantity:  "invalid_quantity",
	InvalidName:      "invalid_name",
}

// String returns the snake_case name of the outcome.
func (o Outcome) String() string {
	if n, ok := names[o]; ok {
		return n
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Applied reports whether the mutation changed state.
func (o Outcome) Applied() bool { return o == OK }

// Parse converts a name back to an Outcome.
func Parse(s string) (Outcome, bool) {
	for o, n := range names {
		if n == s {
			return o, true
		}
	}
	return OK, false
}

// MarshalJSON implements json.Marshaler.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := Parse(s)
	if !ok {
		return fmt.Errorf("unknown outcome %q", s)
	}
	*o = parsed
	return nil
}
