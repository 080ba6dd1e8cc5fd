package comps

import (
	"strings"
)

// Hints are the brand/model/keyword guesses supplied by the caller.
type Hints struct {
	Keywords    []string
	BrandName   string
	ModelNumber string
}

// Query is what a strategy sends to the marketplace.
type Query struct {
	Text   string
	Tokens []string
}

// Empty reports whether there is nothing to search for.
func (q Query) Empty() bool {
	return len(q.Tokens) == 0
}

var categoryVocabulary = map[string]bool{
	"phone":      true,
	"laptop":     true,
	"tablet":     true,
	"gaming":     true,
	"console":    true,
	"camera":     true,
	"headphones": true,
}

var brandSynonyms = map[string][]string{
	"apple":     {"iphone", "ipad"},
	"samsung":   {"galaxy"},
	"google":    {"pixel"},
	"sony":      {"playstation"},
	"microsoft": {"xbox", "surface"},
	"nintendo":  {"switch"},
}

// BuildQuery deterministically turns hints into a query for strategy s.
func BuildQuery(h Hints, s Strategy) Query {
	var tokens []string
	for _, part := range descriptors[s].build(h) {
		tokens = append(tokens, strings.Fields(part)...)
	}
	return Query{Text: strings.Join(tokens, " "), Tokens: tokens}
}

func buildExactBrandModel(h Hints) []string {
	return []string{h.BrandName, h.ModelNumber, keywordAt(h.Keywords, 0)}
}

func buildBrandWithKeywords(h Hints) []string {
	return append([]string{h.BrandName}, firstN(h.Keywords, 2)...)
}

func buildModelWithKeywords(h Hints) []string {
	return append([]string{h.ModelNumber}, firstN(h.Keywords, 2)...)
}

func buildKeywordsOnly(h Hints) []string {
	return firstN(h.Keywords, 3)
}

func buildCategorySearch(h Hints) []string {
	var categories []string
	for _, kw := range h.Keywords {
		if categoryVocabulary[strings.ToLower(strings.TrimSpace(kw))] {
			categories = append(categories, kw)
		}
	}
	if len(categories) == 0 {
		return firstN(h.Keywords, 2)
	}
	return append([]string{h.BrandName}, categories...)
}

func buildPartialMatch(h Hints) []string {
	return []string{keywordAt(h.Keywords, 0)}
}

func buildFuzzySearch(h Hints) []string {
	parts := []string{h.BrandName}
	parts = append(parts, brandSynonyms[strings.ToLower(strings.TrimSpace(h.BrandName))]...)
	return append(parts, keywordAt(h.Keywords, 0))
}

func keywordAt(keywords []string, i int) string {
	if i < len(keywords) {
		return keywords[i]
	}
	return ""
}

func firstN(keywords []string, n int) []string {
	if len(keywords) < n {
		n = len(keywords)
	}
	out := make([]string, n)
	copy(out, keywords[:n])
	return out
}
