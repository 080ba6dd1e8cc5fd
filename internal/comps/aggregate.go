package comps

import (
	"math"

	"comps-workers/internal/marketplace"
)

// PriceStats summarizes a listing set.
type PriceStats struct {
	AveragePrice float64 `json:"averagePrice"`
	MinPrice     float64 `json:"minPrice"`
	MaxPrice     float64 `json:"maxPrice"`
	TotalFound   int     `json:"totalFound"`
}

// Aggregate computes average (rounded to the cent), min and max over
// positive prices. An empty or all-non-positive set yields zeros.
func Aggregate(listings []marketplace.Listing) PriceStats {
	stats := PriceStats{TotalFound: len(listings)}

	var sum float64
	n := 0
	for _, l := range listings {
		if l.Price <= 0 {
			continue
		}
		if n == 0 || l.Price < stats.MinPrice {
			stats.MinPrice = l.Price
		}
		if n == 0 || l.Price > stats.MaxPrice {
			stats.MaxPrice = l.Price
		}
		sum += l.Price
		n++
	}

	if n > 0 {
		stats.AveragePrice = math.Round(sum/float64(n)*100) / 100
	}
	return stats
}
