// Package comps is the multi-strategy sold-listing search engine: it builds
// queries of decreasing precision, ranks what comes back, stops at the first
// strategy that finds enough comparables and reduces the result to price
// statistics.
package comps

import (
	"fmt"
	"time"
)

// Strategy identifies one query formulation. Values are ordered by priority.
type Strategy int

const (
	StrategyExactBrandModel Strategy = iota
	StrategyBrandWithKeywords
	StrategyModelWithKeywords
	StrategyKeywordsOnly
	StrategyCategorySearch
	StrategyPartialMatch
	StrategyFuzzySearch

	strategyCount
)

// Result labels that are not strategies.
const (
	LabelCombined  = "combined_search"
	LabelNoResults = "no_results"
	LabelError     = "error"
)

const (
	defaultWindow = 90 * 24 * time.Hour
	wideWindow    = 180 * 24 * time.Hour

	brandAnchoredMaxPrice = 10000.00
)

// descriptor is everything the runner needs to know about a strategy.
type descriptor struct {
	name      string
	threshold int
	window    time.Duration
	// maxPrice is non-zero for brand-anchored strategies.
	maxPrice float64
	// relevanceFloor drops listings scoring at or below it; zero disables it.
	relevanceFloor int
	build          func(Hints) []string
}

// descriptors is indexed by Strategy.
var descriptors = [strategyCount]descriptor{
	StrategyExactBrandModel: {
		name: "exact_brand_model", threshold: 2, window: defaultWindow,
		maxPrice: brandAnchoredMaxPrice, relevanceFloor: 3, build: buildExactBrandModel,
	},
	StrategyBrandWithKeywords: {
		name: "brand_with_keywords", threshold: 3, window: defaultWindow,
		maxPrice: brandAnchoredMaxPrice, relevanceFloor: 3, build: buildBrandWithKeywords,
	},
	StrategyModelWithKeywords: {
		name: "model_with_keywords", threshold: 3, window: defaultWindow, build: buildModelWithKeywords,
	},
	StrategyKeywordsOnly: {
		name: "keywords_only", threshold: 5, window: defaultWindow, build: buildKeywordsOnly,
	},
	StrategyCategorySearch: {
		name: "category_search", threshold: 4, window: defaultWindow, build: buildCategorySearch,
	},
	StrategyPartialMatch: {
		name: "partial_match", threshold: 8, window: wideWindow, build: buildPartialMatch,
	},
	StrategyFuzzySearch: {
		name: "fuzzy_search", threshold: 6, window: wideWindow, build: buildFuzzySearch,
	},
}

// AllStrategies returns every strategy in priority order.
func AllStrategies() []Strategy {
	out := make([]Strategy, 0, strategyCount)
	for s := Strategy(0); s < strategyCount; s++ {
		out = append(out, s)
	}
	return out
}

func (s Strategy) String() string {
	if !s.valid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return descriptors[s].name
}

// Threshold is the default minimum listing count that ends the search.
func (s Strategy) Threshold() int {
	return descriptors[s].threshold
}

// Window is how far back sold listings are considered.
func (s Strategy) Window() time.Duration {
	return descriptors[s].window
}

// MaxPrice returns the price ceiling, if the strategy has one.
func (s Strategy) MaxPrice() (float64, bool) {
	p := descriptors[s].maxPrice
	return p, p > 0
}

// BrandAnchored reports whether the strict relevance floor applies.
func (s Strategy) BrandAnchored() bool {
	return descriptors[s].relevanceFloor > 0
}

func (s Strategy) valid() bool {
	return s >= 0 && s < strategyCount
}

// ParseStrategy resolves a strategy by its wire name.
func ParseStrategy(name string) (Strategy, error) {
	for s := Strategy(0); s < strategyCount; s++ {
		if descriptors[s].name == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}

// Thresholds maps each strategy to its quality threshold. Overrides are
// keyed by strategy name; unknown names are ignored.
type Thresholds [strategyCount]int

// DefaultThresholds returns the built-in thresholds.
func DefaultThresholds() Thresholds {
	var t Thresholds
	for s := Strategy(0); s < strategyCount; s++ {
		t[s] = descriptors[s].threshold
	}
	return t
}

// WithOverrides returns a copy with positive overrides applied.
func (t Thresholds) WithOverrides(overrides map[string]int) Thresholds {
	for name, v := range overrides {
		s, err := ParseStrategy(name)
		if err != nil || v <= 0 {
			continue
		}
		t[s] = v
	}
	return t
}
