// internal/workers/pricing/search-sold-listings/models.go
package searchsoldlistings

import (
	"comps-workers/internal/comps"
	"comps-workers/internal/marketplace"
)

type Input struct {
	Keywords    []string `json:"keywords"`
	BrandName   string   `json:"brandName,omitempty"`
	ModelNumber string   `json:"modelNumber,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

func (in *Input) request() comps.SearchRequest {
	return comps.SearchRequest{
		Keywords:    in.Keywords,
		BrandName:   in.BrandName,
		ModelNumber: in.ModelNumber,
		Limit:       in.Limit,
	}
}

// Output is written back as process variables.
type Output struct {
	SearchID       string                `json:"searchId"`
	Listings       []marketplace.Listing `json:"listings"`
	AveragePrice   float64               `json:"averagePrice"`
	MinPrice       float64               `json:"minPrice"`
	MaxPrice       float64               `json:"maxPrice"`
	TotalFound     int                   `json:"totalFound"`
	SearchStrategy string                `json:"searchStrategy"`
	SearchKeywords []string              `json:"searchKeywords"`
}

func outputFrom(result *comps.SearchResult) *Output {
	return &Output{
		SearchID:       result.SearchID,
		Listings:       result.Listings,
		AveragePrice:   result.AveragePrice,
		MinPrice:       result.MinPrice,
		MaxPrice:       result.MaxPrice,
		TotalFound:     result.TotalFound,
		SearchStrategy: result.SearchStrategy,
		SearchKeywords: result.SearchKeywords,
	}
}
