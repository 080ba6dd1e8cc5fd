package marketplace

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
  "findCompletedItemsResponse": [{
    "ack": ["Success"],
    "searchResult": [{
      "@count": "4",
      "item": [
        {
          "itemId": ["1"],
          "title": ["Apple iPhone 13 Pro 128GB Graphite"],
          "viewItemURL": ["https://www.ebay.com/itm/1"],
          "galleryURL": ["https://i.ebayimg.com/1.jpg"],
          "sellingStatus": [{"currentPrice": [{"@currencyId": "USD", "__value__": "612.50"}]}],
          "shippingInfo": [{"shippingServiceCost": [{"@currencyId": "USD", "__value__": "0.0"}]}],
          "listingInfo": [{"endTime": ["2024-05-01T12:00:00.000Z"], "listingType": ["AuctionWithBIN"]}],
          "condition": [{"conditionDisplayName": ["Used"]}]
        },
        {
          "itemId": ["2"],
          "title": ["Apple iPhone 13 Pro 256GB"],
          "viewItemURL": ["https://www.ebay.com/itm/2"],
          "sellingStatus": [{"currentPrice": [{"@currencyId": "USD", "__value__": "700.00"}]}],
          "listingInfo": [{"endTime": ["2024-04-20T08:30:00.000Z"], "listingType": ["FixedPrice"]}]
        },
        {
          "itemId": ["3"],
          "title": ["Broken listing"],
          "viewItemURL": ["https://www.ebay.com/itm/3"],
          "sellingStatus": [{"currentPrice": [{"@currencyId": "USD", "__value__": "0"}]}]
        },
        {
          "itemId": ["1"],
          "title": ["Duplicate"],
          "viewItemURL": ["https://www.ebay.com/itm/1"],
          "sellingStatus": [{"currentPrice": [{"@currencyId": "USD", "__value__": "1.00"}]}]
        }
      ]
    }]
  }]
}`

func TestParseCompletedItems(t *testing.T) {
	listings, err := parseCompletedItems([]byte(sampleResponse), "USD")
	require.NoError(t, err)
	require.Len(t, listings, 2)

	first := listings[0]
	assert.Equal(t, "Apple iPhone 13 Pro 128GB Graphite", first.Title)
	assert.Equal(t, 612.50, first.Price)
	assert.Equal(t, "USD", first.Currency)
	assert.Equal(t, "Used", first.Condition)
	assert.Equal(t, "https://www.ebay.com/itm/1", first.URL)
	assert.Equal(t, "https://i.ebayimg.com/1.jpg", first.ImageURL)
	assert.Equal(t, ListingTypeAuction, first.ListingType)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), first.EndDate)
	require.NotNil(t, first.ShippingCost)
	assert.Equal(t, 0.0, *first.ShippingCost)

	second := listings[1]
	assert.Equal(t, UnknownCondition, second.Condition)
	assert.Equal(t, ListingTypeFixed, second.ListingType)
	assert.Nil(t, second.ShippingCost)
	assert.Empty(t, second.ImageURL)
}

func TestParseCompletedItems_EmptyResult(t *testing.T) {
	body := `{"findCompletedItemsResponse":[{"ack":["Success"],"searchResult":[{"@count":"0"}]}]}`

	listings, err := parseCompletedItems([]byte(body), "USD")
	require.NoError(t, err)
	assert.NotNil(t, listings)
	assert.Empty(t, listings)
}

func singleItemResponse(item string) string {
	return `{"findCompletedItemsResponse":[{"ack":["Success"],"searchResult":[{"item":[` + item + `]}]}]}`
}

func TestParseCompletedItems_DropsUnusableItems(t *testing.T) {
	tests := []struct {
		name string
		item string
	}{
		{"unparseable price", `{"title":["x"],"viewItemURL":["https://e/1"],"sellingStatus":[{"currentPrice":[{"__value__":"N/A"}]}]}`},
		{"negative price", `{"title":["x"],"viewItemURL":["https://e/1"],"sellingStatus":[{"currentPrice":[{"__value__":"-3"}]}]}`},
		{"NaN price", `{"title":["x"],"viewItemURL":["https://e/1"],"sellingStatus":[{"currentPrice":[{"__value__":"NaN"}]}]}`},
		{"infinite price", `{"title":["x"],"viewItemURL":["https://e/1"],"sellingStatus":[{"currentPrice":[{"__value__":"Inf"}]}]}`},
		{"positive infinite price", `{"title":["x"],"viewItemURL":["https://e/1"],"sellingStatus":[{"currentPrice":[{"__value__":"+Inf"}]}]}`},
		{"missing sellingStatus", `{"title":["x"],"viewItemURL":["https://e/1"]}`},
		{"missing viewItemURL", `{"title":["x"],"sellingStatus":[{"currentPrice":[{"__value__":"10.00"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listings, err := parseCompletedItems([]byte(singleItemResponse(tt.item)), "USD")
			require.NoError(t, err)
			assert.Empty(t, listings)
		})
	}
}

func TestParseCompletedItems_IgnoresNonFiniteShipping(t *testing.T) {
	item := `{"title":["x"],"viewItemURL":["https://e/1"],
		"sellingStatus":[{"currentPrice":[{"__value__":"10.00"}]}],
		"shippingInfo":[{"shippingServiceCost":[{"__value__":"+Inf"}]}]}`

	listings, err := parseCompletedItems([]byte(singleItemResponse(item)), "USD")
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 10.0, listings[0].Price)
	assert.Nil(t, listings[0].ShippingCost)
}

func TestParseCompletedItems_Failures(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
		wantMsg string
	}{
		{"invalid json", `{not json`, ErrMalformedResponse, ""},
		{"missing envelope", `{}`, ErrMalformedResponse, "missing findCompletedItemsResponse"},
		{
			"ack failure",
			`{"findCompletedItemsResponse":[{"ack":["Failure"],"errorMessage":[{"error":[{"message":["Invalid app id"]}]}]}]}`,
			ErrMarketplaceFailure,
			"Invalid app id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCompletedItems([]byte(tt.body), "USD")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr))
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseCompletedItems_DefaultsCurrency(t *testing.T) {
	body := `{"findCompletedItemsResponse":[{"ack":["Success"],"searchResult":[{"item":[
		{"title":["x"],"viewItemURL":["https://e/1"],"sellingStatus":[{"currentPrice":[{"__value__":"5"}]}]}
	]}]}]}`

	listings, err := parseCompletedItems([]byte(body), "GBP")
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "GBP", listings[0].Currency)
	assert.True(t, listings[0].EndDate.IsZero())
}
