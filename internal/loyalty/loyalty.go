// Package loyalty computes the points a cart will earn at a given instant.
package loyalty

import (
	"time"

	"github.com/wondertwin-ai/rigcart/internal/cart"
)

// Line is one points-eligible cart line.
type Line struct {
	ProductID     string     `json:"product_id"`
	Title         string     `json:"title"`
	Quantity      int        `json:"quantity"`
	PointsPerUnit int64      `json:"points_per_unit"`
	Subtotal      int64      `json:"subtotal"`
	Points        int64      `json:"points"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired"`
}

// Summary is the points outlook for a cart.
type Summary struct {
	TotalPointsToEarn int64  `json:"total_points_to_earn"`
	HasExpiredOffers  bool   `json:"has_expired_offers"`
	Breakdown         []Line `json:"breakdown"`
}

// Summarize evaluates every line against now. Lines without a positive
// per-unit offer are left out of the breakdown. An offer whose expiry is at
// or before now earns nothing but is still listed.
func Summarize(lines []cart.LineItem, now time.Time) Summary {
	s := Summary{Breakdown: []Line{}}
	for _, l := range lines {
		if l.PointsPerUnit == nil || *l.PointsPerUnit <= 0 {
			continue
		}
		row := Line{
			ProductID:     l.ProductID,
			Title:         l.Title,
			Quantity:      l.Quantity,
			PointsPerUnit: *l.PointsPerUnit,
			Subtotal:      *l.PointsPerUnit * int64(l.Quantity),
		}
		if l.PointsExpireAt != nil {
			at := *l.PointsExpireAt
			row.ExpiresAt = &at
			row.Expired = !at.After(now)
		}
		if row.Expired {
			s.HasExpiredOffers = true
		} else {
			row.Points = row.Subtotal
			s.TotalPointsToEarn += row.Points
		}
		s.Breakdown = append(s.Breakdown, row)
	}
	return s
}
