package comps

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"comps-workers/internal/marketplace"
)

var modelNumberShape = regexp.MustCompile(`^(?:[a-z]+\d+|\d+[a-z]+)$`)

const (
	minTokenLen = 3

	conditionNewBonus       = 5
	conditionExcellentBonus = 3

	ageGraceDays  = 60
	maxAgePenalty = 10

	// tieMargin is the score gap below which recency decides.
	tieMargin = 2
)

// ScoredListing pairs a listing with its relevance to one query.
type ScoredListing struct {
	Listing marketplace.Listing
	Score   int
}

// Scorer ranks listings against query tokens.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a scorer; a nil clock means time.Now.
func NewScorer(now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{now: now}
}

// Score computes the relevance of one listing.
func (s *Scorer) Score(l marketplace.Listing, tokens []string) int {
	title := strings.ToLower(l.Title)
	score := 0

	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if len(tok) < minTokenLen || !strings.Contains(title, tok) {
			continue
		}
		score += len(tok)
		if modelNumberShape.MatchString(tok) {
			score += 2 * len(tok)
		}
	}

	condition := strings.ToLower(l.Condition)
	if strings.Contains(condition, "new") {
		score += conditionNewBonus
	}
	if strings.Contains(condition, "excellent") {
		score += conditionExcellentBonus
	}

	if !l.EndDate.IsZero() {
		daysOld := int(s.now().Sub(l.EndDate).Hours() / 24)
		if daysOld > ageGraceDays {
			score -= min(daysOld-ageGraceDays, maxAgePenalty)
		}
	}

	return score
}

// Rank scores listings, applies the brand-anchored relevance floor and
// returns them best first. Listings are not modified.
func (s *Scorer) Rank(listings []marketplace.Listing, tokens []string, strategy Strategy) []marketplace.Listing {
	floor := descriptors[strategy].relevanceFloor

	scored := make([]ScoredListing, 0, len(listings))
	for _, l := range listings {
		sl := ScoredListing{Listing: l, Score: s.Score(l, tokens)}
		if floor > 0 && sl.Score <= floor {
			continue
		}
		scored = append(scored, sl)
	}

	sortScored(scored)

	out := make([]marketplace.Listing, len(scored))
	for i, sl := range scored {
		out[i] = sl.Listing
	}
	return out
}

// sortScored orders by score, letting recency decide between near-equal
// scores. Listings are grouped into bands: a band opens at the highest
// remaining score and holds every listing within tieMargin of it. Bands keep
// score order; inside a band the more recent sale wins, then the higher
// score, then the URL.
func sortScored(scored []ScoredListing) {
	sort.Slice(scored, func(i, j int) bool {
		return byScore(scored[i], scored[j])
	})

	band := make([]int, len(scored))
	for i, leader := 0, 0; i < len(scored); i++ {
		if scored[leader].Score-scored[i].Score >= tieMargin {
			leader = i
		}
		band[i] = leader
	}

	for start := 0; start < len(scored); {
		end := start + 1
		for end < len(scored) && band[end] == band[start] {
			end++
		}
		group := scored[start:end]
		sort.Slice(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if !a.Listing.EndDate.Equal(b.Listing.EndDate) {
				return a.Listing.EndDate.After(b.Listing.EndDate)
			}
			return byScore(a, b)
		})
		start = end
	}
}

// byScore is a total order: score descending, then URL.
func byScore(a, b ScoredListing) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Listing.URL < b.Listing.URL
}
