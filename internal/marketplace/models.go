// internal/marketplace/models.go
package marketplace

import (
	"context"
	"time"
)

// ListingType distinguishes auctions from fixed-price sales.
type ListingType string

const (
	ListingTypeAuction ListingType = "auction"
	ListingTypeFixed   ListingType = "fixed"
)

// Listing is one completed sale. URL is its identity.
type Listing struct {
	Title        string      `json:"title"`
	Price        float64     `json:"price"`
	Currency     string      `json:"currency"`
	Condition    string      `json:"condition"`
	EndDate      time.Time   `json:"endDate"`
	URL          string      `json:"url"`
	ImageURL     string      `json:"imageUrl,omitempty"`
	ShippingCost *float64    `json:"shippingCost,omitempty"`
	ListingType  ListingType `json:"listingType"`
}

// SearchParams is one completed-items query.
type SearchParams struct {
	Query string
	// Window is how far back EndTimeFrom reaches.
	Window time.Duration
	// MaxPrice, when non-nil, adds a MaxPrice item filter.
	MaxPrice *float64
	// Limit is the page size, clamped to [1, MaxEntriesPerPage].
	Limit int
}

// Searcher issues one completed-listings search.
type Searcher interface {
	Search(ctx context.Context, params SearchParams) ([]Listing, error)
}

const (
	MaxEntriesPerPage = 100
	MinPrice          = 1.00
	UnknownCondition  = "Unknown"
)
