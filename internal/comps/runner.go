package comps

import (
	"context"
	"errors"
	"time"

	"comps-workers/internal/common/config"
	apperrors "comps-workers/internal/common/errors"
	"comps-workers/internal/common/logger"
	"comps-workers/internal/common/metrics"
	"comps-workers/internal/marketplace"
)

// Outcome is the terminal state of one run.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeCombined  Outcome = "combined"
	OutcomeNoResults Outcome = "no_results"
)

// Attempt records what one strategy did.
type Attempt struct {
	Strategy   string `json:"strategy"`
	Query      string `json:"query"`
	Found      int    `json:"found"`
	Accepted   int    `json:"accepted"`
	Threshold  int    `json:"threshold"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

// RunResult is the ranked listing set chosen by a run.
type RunResult struct {
	Outcome  Outcome
	Strategy string
	Tokens   []string
	Listings []marketplace.Listing
	Attempts []Attempt
}

type strategyResult struct {
	query    Query
	listings []marketplace.Listing
}

// Accumulator is the loop state of one run: every strategy's ranked
// listings plus the running best. It belongs to a single run.
type Accumulator struct {
	results      map[Strategy]strategyResult
	best         []marketplace.Listing
	bestStrategy Strategy
	bestQuery    Query
	hasBest      bool
}

func newAccumulator() *Accumulator {
	return &Accumulator{results: make(map[Strategy]strategyResult)}
}

// record stores a strategy's ranked listings; a strictly larger set
// becomes the running best.
func (a *Accumulator) record(s Strategy, q Query, listings []marketplace.Listing) {
	a.results[s] = strategyResult{query: q, listings: listings}
	if len(listings) > len(a.best) {
		a.best = listings
		a.bestStrategy = s
		a.bestQuery = q
		a.hasBest = true
	}
}

// RunnerConfig tunes the strategy loop.
type RunnerConfig struct {
	// CallTimeout bounds each marketplace call; zero leaves it to the
	// parent context.
	CallTimeout  time.Duration
	Thresholds   Thresholds
	CombineBelow int
	CombineCap   int
}

// DefaultRunnerConfig returns the built-in tuning.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		CallTimeout:  10 * time.Second,
		Thresholds:   DefaultThresholds(),
		CombineBelow: 3,
		CombineCap:   DefaultCombineCap,
	}
}

// RunnerConfigFrom maps the search section of the application config.
func RunnerConfigFrom(cfg config.SearchConfig) RunnerConfig {
	return RunnerConfig{
		CallTimeout:  config.GetDuration(cfg.CallTimeout),
		Thresholds:   DefaultThresholds().WithOverrides(cfg.Thresholds),
		CombineBelow: cfg.CombineBelow,
		CombineCap:   cfg.CombineCap,
	}
}

// Runner tries strategies in priority order until one finds enough
// comparables. Strategies run strictly one after another.
type Runner struct {
	searcher marketplace.Searcher
	scorer   *Scorer
	config   RunnerConfig
	logger   logger.Logger
}

// NewRunner fills unset tuning values from DefaultRunnerConfig.
func NewRunner(searcher marketplace.Searcher, scorer *Scorer, cfg RunnerConfig, log logger.Logger) *Runner {
	defaults := DefaultRunnerConfig()
	for s := range cfg.Thresholds {
		if cfg.Thresholds[s] <= 0 {
			cfg.Thresholds[s] = defaults.Thresholds[s]
		}
	}
	if cfg.CombineBelow <= 0 {
		cfg.CombineBelow = defaults.CombineBelow
	}
	if cfg.CombineCap <= 0 {
		cfg.CombineCap = defaults.CombineCap
	}
	return &Runner{
		searcher: searcher,
		scorer:   scorer,
		config:   cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "strategy-runner"}),
	}
}

// Run executes the strategy loop. Marketplace failures and timeouts count
// as zero results for that strategy; only missing credentials abort the run.
func (r *Runner) Run(ctx context.Context, hints Hints, limit int) (*RunResult, error) {
	acc := newAccumulator()
	attempts := make([]Attempt, 0, strategyCount)

	for _, s := range AllStrategies() {
		if ctx.Err() != nil {
			r.logger.Warn("search cancelled", map[string]interface{}{
				"strategy": s.String(),
				"error":    ctx.Err().Error(),
			})
			break
		}

		q := BuildQuery(hints, s)
		threshold := r.config.Thresholds[s]
		attempt := Attempt{Strategy: s.String(), Query: q.Text, Threshold: threshold}

		if q.Empty() {
			attempt.Skipped = true
			attempts = append(attempts, attempt)
			metrics.StrategyAttempts.WithLabelValues(s.String(), "skipped").Inc()
			continue
		}

		start := time.Now()
		raw, err := r.search(ctx, s, q, limit)
		attempt.DurationMs = time.Since(start).Milliseconds()
		metrics.MarketplaceCallDuration.WithLabelValues(s.String()).Observe(time.Since(start).Seconds())

		if err != nil {
			if isSystemError(err) {
				return nil, err
			}
			attempt.Error = err.Error()
			attempts = append(attempts, attempt)
			metrics.StrategyAttempts.WithLabelValues(s.String(), "failed").Inc()
			r.logger.Warn("strategy failed", map[string]interface{}{
				"strategy": s.String(),
				"query":    q.Text,
				"error":    err.Error(),
			})
			acc.record(s, q, nil)
			continue
		}

		ranked := r.scorer.Rank(raw, q.Tokens, s)
		attempt.Found = len(raw)
		attempt.Accepted = len(ranked)
		attempts = append(attempts, attempt)
		acc.record(s, q, ranked)

		r.logger.Debug("strategy finished", map[string]interface{}{
			"strategy":  s.String(),
			"query":     q.Text,
			"found":     len(raw),
			"accepted":  len(ranked),
			"threshold": threshold,
		})

		if len(ranked) >= threshold {
			metrics.StrategyAttempts.WithLabelValues(s.String(), "accepted").Inc()
			return &RunResult{
				Outcome:  OutcomeSucceeded,
				Strategy: s.String(),
				Tokens:   q.Tokens,
				Listings: ranked,
				Attempts: attempts,
			}, nil
		}
		metrics.StrategyAttempts.WithLabelValues(s.String(), "below_threshold").Inc()
	}

	return r.finish(acc, attempts), nil
}

func (r *Runner) finish(acc *Accumulator, attempts []Attempt) *RunResult {
	result := &RunResult{Outcome: OutcomeNoResults, Strategy: LabelNoResults, Attempts: attempts}
	if acc.hasBest {
		result.Outcome = OutcomeExhausted
		result.Strategy = acc.bestStrategy.String()
		result.Tokens = acc.bestQuery.Tokens
		result.Listings = acc.best
	}

	if len(acc.best) < r.config.CombineBelow {
		combined, tokens := Combine(acc, r.config.CombineCap)
		if len(combined) > len(acc.best) {
			result.Outcome = OutcomeCombined
			result.Strategy = LabelCombined
			result.Tokens = tokens
			result.Listings = combined
		}
	}

	if len(result.Listings) == 0 {
		result.Outcome = OutcomeNoResults
		result.Strategy = LabelNoResults
		result.Tokens = nil
		result.Listings = []marketplace.Listing{}
	}
	return result
}

func (r *Runner) search(ctx context.Context, s Strategy, q Query, limit int) ([]marketplace.Listing, error) {
	callCtx := ctx
	if r.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.config.CallTimeout)
		defer cancel()
	}

	params := marketplace.SearchParams{
		Query:  q.Text,
		Window: s.Window(),
		Limit:  limit,
	}
	if p, ok := s.MaxPrice(); ok {
		params.MaxPrice = &p
	}
	return r.searcher.Search(callCtx, params)
}

func isSystemError(err error) bool {
	if errors.Is(err, marketplace.ErrMissingCredentials) {
		return true
	}
	var stdErr *apperrors.StandardError
	return errors.As(err, &stdErr) && stdErr.Code == apperrors.ErrCodeMarketplaceCredentialsMissing
}
