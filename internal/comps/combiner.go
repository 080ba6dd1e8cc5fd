package comps

import "comps-workers/internal/marketplace"

// DefaultCombineCap bounds the size of a combined result.
const DefaultCombineCap = 20

// Combine merges per-strategy results in priority order. The first
// (highest-priority) instance of a URL wins and the output holds at most
// limit listings. Tokens are the de-duplicated union of the contributing
// strategies' tokens, in the same order.
func Combine(acc *Accumulator, limit int) ([]marketplace.Listing, []string) {
	listings := make([]marketplace.Listing, 0, limit)
	seenURL := make(map[string]bool)
	seenToken := make(map[string]bool)
	var tokens []string

	for _, s := range AllStrategies() {
		if len(listings) >= limit {
			break
		}
		entry, ok := acc.results[s]
		if !ok || len(entry.listings) == 0 {
			continue
		}
		contributed := false
		for _, l := range entry.listings {
			if len(listings) >= limit {
				break
			}
			if seenURL[l.URL] {
				continue
			}
			seenURL[l.URL] = true
			listings = append(listings, l)
			contributed = true
		}
		if !contributed {
			continue
		}
		for _, tok := range entry.query.Tokens {
			if !seenToken[tok] {
				seenToken[tok] = true
				tokens = append(tokens, tok)
			}
		}
	}

	return listings, tokens
}
