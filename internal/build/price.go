package build

import "github.com/wondertwin-ai/rigcart/internal/catalog"

// TotalPrice sums the unit price of every occupant. It is the only way a
// build's total is ever computed.
func TotalPrice(slots map[catalog.Category][]catalog.Component) catalog.Money {
	var total catalog.Money
	for _, comps := range slots {
		for _, c := range comps {
			total += c.UnitPrice
		}
	}
	return total
}
