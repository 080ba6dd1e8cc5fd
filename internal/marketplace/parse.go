// internal/marketplace/parse.go
package marketplace

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// The finding service wraps every scalar in a single-element array.
type findCompletedItemsEnvelope struct {
	Response []struct {
		Ack          []string `json:"ack"`
		ErrorMessage []struct {
			Error []struct {
				Message []string `json:"message"`
			} `json:"error"`
		} `json:"errorMessage"`
		SearchResult []struct {
			Count string    `json:"@count"`
			Item  []rawItem `json:"item"`
		} `json:"searchResult"`
	} `json:"findCompletedItemsResponse"`
}

type rawItem struct {
	ItemID        []string `json:"itemId"`
	Title         []string `json:"title"`
	ViewItemURL   []string `json:"viewItemURL"`
	GalleryURL    []string `json:"galleryURL"`
	SellingStatus []struct {
		CurrentPrice []amount `json:"currentPrice"`
	} `json:"sellingStatus"`
	ShippingInfo []struct {
		ShippingServiceCost []amount `json:"shippingServiceCost"`
	} `json:"shippingInfo"`
	ListingInfo []struct {
		EndTime     []string `json:"endTime"`
		ListingType []string `json:"listingType"`
	} `json:"listingInfo"`
	Condition []struct {
		ConditionDisplayName []string `json:"conditionDisplayName"`
	} `json:"condition"`
}

type amount struct {
	CurrencyID string `json:"@currencyId"`
	Value      string `json:"__value__"`
}

// parseCompletedItems flattens a findCompletedItems JSON body into listings.
// Items without a URL or with a non-positive/unparseable price are dropped,
// and a repeated URL keeps its first occurrence.
func parseCompletedItems(body []byte, defaultCurrency string) ([]Listing, error) {
	var env findCompletedItemsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(env.Response) == 0 {
		return nil, fmt.Errorf("%w: missing findCompletedItemsResponse", ErrMalformedResponse)
	}

	resp := env.Response[0]
	if ack := first(resp.Ack); strings.EqualFold(ack, "Failure") {
		msg := "ack=Failure"
		if len(resp.ErrorMessage) > 0 && len(resp.ErrorMessage[0].Error) > 0 {
			msg = first(resp.ErrorMessage[0].Error[0].Message)
		}
		return nil, fmt.Errorf("%w: %s", ErrMarketplaceFailure, msg)
	}

	listings := make([]Listing, 0)
	seen := make(map[string]bool)
	for _, sr := range resp.SearchResult {
		for _, item := range sr.Item {
			l, ok := toListing(item, defaultCurrency)
			if !ok || seen[l.URL] {
				continue
			}
			seen[l.URL] = true
			listings = append(listings, l)
		}
	}
	return listings, nil
}

func toListing(item rawItem, defaultCurrency string) (Listing, bool) {
	url := strings.TrimSpace(first(item.ViewItemURL))
	if url == "" {
		return Listing{}, false
	}

	var price amount
	if len(item.SellingStatus) > 0 && len(item.SellingStatus[0].CurrentPrice) > 0 {
		price = item.SellingStatus[0].CurrentPrice[0]
	}
	value, ok := parseAmount(price.Value)
	if !ok || value <= 0 {
		return Listing{}, false
	}

	l := Listing{
		Title:       strings.TrimSpace(first(item.Title)),
		Price:       value,
		Currency:    price.CurrencyID,
		Condition:   UnknownCondition,
		URL:         url,
		ImageURL:    first(item.GalleryURL),
		ListingType: ListingTypeFixed,
	}
	if l.Currency == "" {
		l.Currency = defaultCurrency
	}

	if len(item.Condition) > 0 {
		if name := strings.TrimSpace(first(item.Condition[0].ConditionDisplayName)); name != "" {
			l.Condition = name
		}
	}

	if len(item.ShippingInfo) > 0 && len(item.ShippingInfo[0].ShippingServiceCost) > 0 {
		raw := item.ShippingInfo[0].ShippingServiceCost[0].Value
		if cost, ok := parseAmount(raw); ok && cost >= 0 {
			l.ShippingCost = &cost
		}
	}

	if len(item.ListingInfo) > 0 {
		info := item.ListingInfo[0]
		if t, err := time.Parse(time.RFC3339, first(info.EndTime)); err == nil {
			l.EndDate = t.UTC()
		}
		if strings.HasPrefix(strings.ToLower(first(info.ListingType)), "auction") {
			l.ListingType = ListingTypeAuction
		}
	}

	return l, true
}

// parseAmount accepts only finite decimal amounts.
func parseAmount(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
