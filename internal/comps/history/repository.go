// Package history persists finished comparable searches to PostgreSQL.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	apperrors "comps-workers/internal/common/errors"
	"comps-workers/internal/comps"

	"github.com/lib/pq"
)

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 200
)

const schema = `
CREATE TABLE IF NOT EXISTS comps_searches (
	search_id       UUID PRIMARY KEY,
	keywords        TEXT[] NOT NULL,
	brand_name      TEXT NOT NULL DEFAULT '',
	model_number    TEXT NOT NULL DEFAULT '',
	strategy        TEXT NOT NULL,
	search_keywords TEXT[] NOT NULL,
	total_found     INTEGER NOT NULL,
	average_price   NUMERIC(12,2) NOT NULL,
	min_price       NUMERIC(12,2) NOT NULL,
	max_price       NUMERIC(12,2) NOT NULL,
	listings        JSONB NOT NULL,
	searched_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS comps_searches_searched_at_idx ON comps_searches (searched_at DESC);`

const insertSearch = `
	INSERT INTO comps_searches (
		search_id, keywords, brand_name, model_number, strategy, search_keywords,
		total_found, average_price, min_price, max_price, listings, searched_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (search_id) DO NOTHING`

const selectRecent = `
	SELECT search_id, keywords, brand_name, model_number, strategy, search_keywords,
		total_found, average_price, min_price, max_price, searched_at
	FROM comps_searches
	ORDER BY searched_at DESC
	LIMIT $1`

// Entry is one recorded search without its listings.
type Entry struct {
	SearchID       string    `json:"searchId"`
	Keywords       []string  `json:"keywords"`
	BrandName      string    `json:"brandName,omitempty"`
	ModelNumber    string    `json:"modelNumber,omitempty"`
	SearchStrategy string    `json:"searchStrategy"`
	SearchKeywords []string  `json:"searchKeywords"`
	TotalFound     int       `json:"totalFound"`
	AveragePrice   float64   `json:"averagePrice"`
	MinPrice       float64   `json:"minPrice"`
	MaxPrice       float64   `json:"maxPrice"`
	SearchedAt     time.Time `json:"searchedAt"`
}

// Repository reads and writes the comps_searches table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a history repository over db.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Name() string { return "history" }

// EnsureSchema creates the table and index when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create comps_searches: %w", err)
	}
	return nil
}

// Record stores a finished search. Re-recording the same search ID is a no-op.
func (r *Repository) Record(ctx context.Context, result *comps.SearchResult) error {
	listings, err := json.Marshal(result.Listings)
	if err != nil {
		return apperrors.NewHistoryWriteError(err)
	}

	_, err = r.db.ExecContext(ctx, insertSearch,
		result.SearchID,
		pq.Array(result.Request.Keywords),
		result.Request.BrandName,
		result.Request.ModelNumber,
		result.SearchStrategy,
		pq.Array(result.SearchKeywords),
		result.TotalFound,
		result.AveragePrice,
		result.MinPrice,
		result.MaxPrice,
		listings,
		result.SearchedAt,
	)
	if err != nil {
		return apperrors.NewHistoryWriteError(err)
	}
	return nil
}

// Recent returns the latest searches, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	rows, err := r.db.QueryContext(ctx, selectRecent, limit)
	if err != nil {
		return nil, apperrors.NewHistoryReadError(err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		err := rows.Scan(
			&e.SearchID,
			pq.Array(&e.Keywords),
			&e.BrandName,
			&e.ModelNumber,
			&e.SearchStrategy,
			pq.Array(&e.SearchKeywords),
			&e.TotalFound,
			&e.AveragePrice,
			&e.MinPrice,
			&e.MaxPrice,
			&e.SearchedAt,
		)
		if err != nil {
			return nil, apperrors.NewHistoryReadError(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewHistoryReadError(err)
	}
	return entries, nil
}
