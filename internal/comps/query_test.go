package comps

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	full := Hints{
		Keywords:    []string{"iphone", "14", "pro", "max"},
		BrandName:   "Apple",
		ModelNumber: "A2650",
	}

	tests := []struct {
		name     string
		hints    Hints
		strategy Strategy
		want     string
	}{
		{"exact brand model", full, StrategyExactBrandModel, "Apple A2650 iphone"},
		{"exact without model", Hints{Keywords: []string{"iphone"}, BrandName: "Apple"}, StrategyExactBrandModel, "Apple iphone"},
		{"brand with keywords", full, StrategyBrandWithKeywords, "Apple iphone 14"},
		{"model with keywords", full, StrategyModelWithKeywords, "A2650 iphone 14"},
		{"model with keywords no model", Hints{Keywords: []string{"iphone", "14"}}, StrategyModelWithKeywords, "iphone 14"},
		{"keywords only", full, StrategyKeywordsOnly, "iphone 14 pro"},
		{"keywords only short list", Hints{Keywords: []string{"iphone"}}, StrategyKeywordsOnly, "iphone"},
		{"category fallback", full, StrategyCategorySearch, "iphone 14"},
		{
			"category with brand",
			Hints{Keywords: []string{"galaxy", "Phone", "s21"}, BrandName: "Samsung"},
			StrategyCategorySearch,
			"Samsung Phone",
		},
		{
			"category without brand",
			Hints{Keywords: []string{"mirrorless", "camera", "lens"}},
			StrategyCategorySearch,
			"camera",
		},
		{"partial match", full, StrategyPartialMatch, "iphone"},
		{"fuzzy apple", full, StrategyFuzzySearch, "Apple iphone ipad iphone"},
		{"fuzzy samsung", Hints{Keywords: []string{"s21"}, BrandName: "samsung"}, StrategyFuzzySearch, "samsung galaxy s21"},
		{"fuzzy unknown brand", Hints{Keywords: []string{"drill"}, BrandName: "Makita"}, StrategyFuzzySearch, "Makita drill"},
		{"fuzzy no brand", Hints{Keywords: []string{"drill"}}, StrategyFuzzySearch, "drill"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildQuery(tt.hints, tt.strategy)
			assert.Equal(t, tt.want, q.Text)
		})
	}
}

func TestBuildQuery_SplitsMultiWordHints(t *testing.T) {
	q := BuildQuery(Hints{Keywords: []string{"iphone 14", "pro"}, BrandName: " Apple "}, StrategyBrandWithKeywords)
	assert.Equal(t, "Apple iphone 14 pro", q.Text)
	assert.Equal(t, []string{"Apple", "iphone", "14", "pro"}, q.Tokens)
}

func TestBuildQuery_EmptyHints(t *testing.T) {
	for _, s := range AllStrategies() {
		q := BuildQuery(Hints{}, s)
		assert.True(t, q.Empty(), s.String())
		assert.Equal(t, "", q.Text)
	}
}

func TestBuildQuery_DoesNotMutateKeywords(t *testing.T) {
	keywords := []string{"a1", "b2", "c3"}
	_ = BuildQuery(Hints{Keywords: keywords, BrandName: "x"}, StrategyBrandWithKeywords)
	_ = BuildQuery(Hints{Keywords: keywords, ModelNumber: "y"}, StrategyModelWithKeywords)
	assert.Equal(t, []string{"a1", "b2", "c3"}, keywords)
}
