package comps

import (
	"context"
	"fmt"
	"testing"
	"time"

	"comps-workers/internal/common/logger"
	"comps-workers/internal/marketplace"

	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// mockSearcher is a testify mock of marketplace.Searcher.
type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, params marketplace.SearchParams) ([]marketplace.Listing, error) {
	args := m.Called(ctx, params)
	var listings []marketplace.Listing
	if v := args.Get(0); v != nil {
		listings = v.([]marketplace.Listing)
	}
	return listings, args.Error(1)
}

func (m *mockSearcher) onQuery(query string, listings []marketplace.Listing, err error) *mock.Call {
	return m.On("Search", mock.Anything, mock.MatchedBy(func(p marketplace.SearchParams) bool {
		return p.Query == query
	})).Return(listings, err)
}

type searcherFunc func(ctx context.Context, params marketplace.SearchParams) ([]marketplace.Listing, error)

func (f searcherFunc) Search(ctx context.Context, params marketplace.SearchParams) ([]marketplace.Listing, error) {
	return f(ctx, params)
}

func listing(id, title string, price float64, daysAgo int) marketplace.Listing {
	return marketplace.Listing{
		Title:       title,
		Price:       price,
		Currency:    "USD",
		Condition:   "Used",
		EndDate:     fixedNow.Add(-time.Duration(daysAgo) * 24 * time.Hour),
		URL:         fmt.Sprintf("https://www.ebay.com/itm/%s", id),
		ListingType: marketplace.ListingTypeFixed,
	}
}

func newTestRunner(t *testing.T, searcher marketplace.Searcher) *Runner {
	t.Helper()
	cfg := DefaultRunnerConfig()
	cfg.CallTimeout = time.Second
	return NewRunner(searcher, NewScorer(fixedClock), cfg, logger.NewTestLogger(t))
}

func urls(listings []marketplace.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.URL
	}
	return out
}
