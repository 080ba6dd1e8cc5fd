// internal/workers/pricing/aggregate-price-stats/models.go
package aggregatepricestats

import "comps-workers/internal/marketplace"

// Input usually carries the listings variable written by a previous
// search-sold-listings task.
type Input struct {
	Listings []marketplace.Listing `json:"listings"`
}

type Output struct {
	AveragePrice float64 `json:"averagePrice"`
	MinPrice     float64 `json:"minPrice"`
	MaxPrice     float64 `json:"maxPrice"`
	TotalFound   int     `json:"totalFound"`
}
