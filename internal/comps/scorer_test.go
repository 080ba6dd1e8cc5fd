package comps

import (
	"testing"
	"time"

	"comps-workers/internal/marketplace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer(fixedClock)

	tests := []struct {
		name      string
		title     string
		condition string
		daysAgo   int
		tokens    []string
		want      int
	}{
		{"title tokens", "Apple iPhone 14 Pro 128GB", "Used", 0, []string{"iphone", "14", "pro"}, 9},
		{"short tokens ignored", "LG TV", "Used", 0, []string{"lg", "tv"}, 0},
		{"model number letters then digits", "Acme X100 gadget", "Used", 0, []string{"x100"}, 12},
		{"model number digits then letters", "Memory 128GB stick", "Used", 0, []string{"128gb"}, 15},
		{"model number not in title", "Acme gadget", "Used", 0, []string{"x100"}, 0},
		{"new condition", "Widget", "Brand New", 0, []string{"widget"}, 11},
		{"excellent condition", "Widget", "Used - Excellent", 0, []string{"widget"}, 9},
		{"age within grace", "Widget", "Used", 60, []string{"widget"}, 6},
		{"age penalty", "Widget", "Used", 65, []string{"widget"}, 1},
		{"age penalty capped", "Widget", "Used", 200, []string{"widget"}, -4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := listing("1", tt.title, 10, tt.daysAgo)
			l.Condition = tt.condition
			assert.Equal(t, tt.want, scorer.Score(l, tt.tokens))
		})
	}
}

func TestScorer_ZeroEndDateHasNoPenalty(t *testing.T) {
	l := listing("1", "Widget", 10, 0)
	l.EndDate = time.Time{}
	assert.Equal(t, 6, NewScorer(fixedClock).Score(l, []string{"widget"}))
}

func TestScorer_Rank_RecentFullMatchBeatsOldAccessory(t *testing.T) {
	a := listing("a", "Apple iPhone 14 Pro 128GB", 700, 0)
	b := listing("b", "iPhone Case", 15, 90)

	ranked := NewScorer(fixedClock).Rank([]marketplace.Listing{b, a}, []string{"iphone", "14", "pro"}, StrategyKeywordsOnly)

	assert.Equal(t, []string{a.URL, b.URL}, urls(ranked))
}

func TestScorer_Rank_NearTiesPreferRecency(t *testing.T) {
	tokens := []string{"widget", "blue"}
	older := listing("older", "widget blue", 10, 10)
	newer := listing("newer", "widget", 10, 1)
	closeNewer := listing("close", "widget bluex", 10, 2)

	ranked := NewScorer(fixedClock).Rank([]marketplace.Listing{older, newer, closeNewer}, tokens, StrategyKeywordsOnly)

	// "close" and "older" tie on score; "close" ended more recently.
	assert.Equal(t, []string{closeNewer.URL, older.URL, newer.URL}, urls(ranked))
}

func TestScorer_Rank_NearTieChainIsOrderIndependent(t *testing.T) {
	tokens := []string{"widget", "blue", "red", "aaaaaaaa"}
	high := listing("high", "widget blue", 10, 30) // 10
	mid := listing("mid", "widget red", 10, 20)    // 9
	low := listing("low", "aaaaaaaa", 10, 10)      // 8

	scorer := NewScorer(fixedClock)
	require.Equal(t, 10, scorer.Score(high, tokens))
	require.Equal(t, 9, scorer.Score(mid, tokens))
	require.Equal(t, 8, scorer.Score(low, tokens))

	// high and mid share a band led by high; low opens the next band even
	// though it is within two points of mid and more recent.
	want := []string{mid.URL, high.URL, low.URL}
	inputs := [][]marketplace.Listing{
		{high, mid, low},
		{low, mid, high},
		{mid, low, high},
	}
	for _, in := range inputs {
		assert.Equal(t, want, urls(scorer.Rank(in, tokens, StrategyKeywordsOnly)))
	}
}

func TestScorer_Rank_BrandAnchoredFloor(t *testing.T) {
	tokens := []string{"abc", "abcd"}
	atFloor := listing("floor", "abc only", 10, 0)
	above := listing("above", "abcd thing", 10, 0)
	none := listing("none", "unrelated", 10, 0)

	scorer := NewScorer(fixedClock)

	anchored := scorer.Rank([]marketplace.Listing{atFloor, above, none}, tokens, StrategyBrandWithKeywords)
	assert.Equal(t, []string{above.URL}, urls(anchored))

	open := scorer.Rank([]marketplace.Listing{atFloor, above, none}, tokens, StrategyKeywordsOnly)
	assert.Len(t, open, 3)
}

func TestScorer_Rank_Deterministic(t *testing.T) {
	tokens := []string{"apple", "iphone", "pro"}
	input := []marketplace.Listing{
		listing("1", "Apple iPhone 13 Pro", 600, 3),
		listing("2", "iPhone 13", 400, 1),
		listing("3", "Apple Watch", 200, 2),
		listing("4", "Apple iPhone Pro Max New", 900, 80),
	}
	reversed := []marketplace.Listing{input[3], input[2], input[1], input[0]}

	scorer := NewScorer(fixedClock)
	first := scorer.Rank(input, tokens, StrategyKeywordsOnly)
	second := scorer.Rank(input, tokens, StrategyKeywordsOnly)
	fromReversed := scorer.Rank(reversed, tokens, StrategyKeywordsOnly)

	assert.Equal(t, first, second)
	assert.Equal(t, urls(first), urls(fromReversed))
	assert.Equal(t, "https://www.ebay.com/itm/1", input[0].URL, "input must not be reordered")
}
