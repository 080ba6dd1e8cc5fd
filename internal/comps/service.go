package comps

import (
	"context"
	"strings"
	"time"

	apperrors "comps-workers/internal/common/errors"
	"comps-workers/internal/common/logger"
	"comps-workers/internal/common/metrics"
	"comps-workers/internal/marketplace"

	"github.com/google/uuid"
)

const DefaultLimit = 20

// SearchRequest carries the caller's hints.
type SearchRequest struct {
	Keywords    []string `json:"keywords"`
	BrandName   string   `json:"brandName,omitempty"`
	ModelNumber string   `json:"modelNumber,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

// SearchResult is what callers get back from a search.
type SearchResult struct {
	SearchID string                `json:"searchId"`
	Listings []marketplace.Listing `json:"listings"`
	PriceStats
	SearchStrategy string        `json:"searchStrategy"`
	SearchKeywords []string      `json:"searchKeywords"`
	Attempts       []Attempt     `json:"attempts,omitempty"`
	Request        SearchRequest `json:"request"`
	SearchedAt     time.Time     `json:"searchedAt"`
}

// ErrorResult is the result reported alongside a hard failure.
func ErrorResult(req SearchRequest) *SearchResult {
	return &SearchResult{
		SearchID:       uuid.NewString(),
		Listings:       []marketplace.Listing{},
		SearchStrategy: LabelError,
		SearchKeywords: []string{},
		Request:        req,
		SearchedAt:     time.Now().UTC(),
	}
}

// Sink receives finished results. Sinks are best-effort: their errors are
// logged and never change the result.
type Sink interface {
	Name() string
	Record(ctx context.Context, result *SearchResult) error
}

// Service validates a request, runs the strategy loop, aggregates prices and
// hands the result to the configured sinks.
type Service struct {
	runner       *Runner
	sinks        []Sink
	defaultLimit int
	maxLimit     int
	logger       logger.Logger
	now          func() time.Time
}

// NewService creates the search service. maxLimit caps the per-call limit;
// sinks receive every completed result.
func NewService(runner *Runner, maxLimit int, log logger.Logger, sinks ...Sink) *Service {
	if maxLimit <= 0 || maxLimit > marketplace.MaxEntriesPerPage {
		maxLimit = marketplace.MaxEntriesPerPage
	}
	return &Service{
		runner:       runner,
		sinks:        sinks,
		defaultLimit: DefaultLimit,
		maxLimit:     maxLimit,
		logger:       log.WithFields(map[string]interface{}{"component": "comps-service"}),
		now:          time.Now,
	}
}

// WithDefaultLimit sets the page size used when a request has none.
// Values outside [1, maxLimit] are ignored.
func (s *Service) WithDefaultLimit(n int) *Service {
	if n > 0 && n <= s.maxLimit {
		s.defaultLimit = n
	}
	return s
}

// Search returns a validation error for an empty keyword list before any
// network call. Absence of comparables is a result, not an error.
func (s *Service) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	req = s.normalize(req)
	if len(req.Keywords) == 0 {
		return nil, apperrors.NewValidationError("keywords must contain at least one non-empty entry")
	}

	start := time.Now()
	run, err := s.runner.Run(ctx, Hints{
		Keywords:    req.Keywords,
		BrandName:   req.BrandName,
		ModelNumber: req.ModelNumber,
	}, req.Limit)
	if err != nil {
		metrics.SearchOutcomes.WithLabelValues(LabelError).Inc()
		return nil, err
	}

	tokens := run.Tokens
	if tokens == nil {
		tokens = []string{}
	}
	result := &SearchResult{
		SearchID:       uuid.NewString(),
		Listings:       run.Listings,
		PriceStats:     Aggregate(run.Listings),
		SearchStrategy: run.Strategy,
		SearchKeywords: tokens,
		Attempts:       run.Attempts,
		Request:        req,
		SearchedAt:     s.now().UTC(),
	}

	metrics.SearchOutcomes.WithLabelValues(result.SearchStrategy).Inc()
	metrics.ListingsReturned.Observe(float64(result.TotalFound))

	s.logger.Info("search completed", map[string]interface{}{
		"searchId":   result.SearchID,
		"strategy":   result.SearchStrategy,
		"outcome":    string(run.Outcome),
		"totalFound": result.TotalFound,
		"average":    result.AveragePrice,
		"durationMs": time.Since(start).Milliseconds(),
	})

	s.record(ctx, result)
	return result, nil
}

func (s *Service) normalize(req SearchRequest) SearchRequest {
	keywords := make([]string, 0, len(req.Keywords))
	for _, kw := range req.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	req.Keywords = keywords
	req.BrandName = strings.TrimSpace(req.BrandName)
	req.ModelNumber = strings.TrimSpace(req.ModelNumber)

	if req.Limit <= 0 {
		req.Limit = s.defaultLimit
	}
	if req.Limit > s.maxLimit {
		req.Limit = s.maxLimit
	}
	return req
}

func (s *Service) record(ctx context.Context, result *SearchResult) {
	for _, sink := range s.sinks {
		if err := sink.Record(ctx, result); err != nil {
			s.logger.Warn("result sink failed", map[string]interface{}{
				"sink":     sink.Name(),
				"searchId": result.SearchID,
				"error":    err.Error(),
			})
		}
	}
}
