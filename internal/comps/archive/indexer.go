// Package archive keeps every listing returned by a search in an
// Elasticsearch index so past comparables can be looked up later.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"comps-workers/internal/comps"
	"comps-workers/internal/marketplace"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

var (
	ErrMissingIndex = errors.New("archive index name is required")
	ErrIndexFailed  = errors.New("ARCHIVE_INDEX_FAILED")
	ErrSearchFailed = errors.New("ARCHIVE_SEARCH_FAILED")
	ErrEmptyQuery   = errors.New("archive query is empty")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Document is the archived form of one listing.
type Document struct {
	marketplace.Listing
	SearchID       string    `json:"searchId"`
	SearchStrategy string    `json:"searchStrategy"`
	SearchKeywords []string  `json:"searchKeywords"`
	ArchivedAt     time.Time `json:"archivedAt"`
}

// DocumentID is stable per listing URL so re-archiving overwrites.
func DocumentID(url string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url)).String()
}

// Indexer writes search results into the archive index and queries it.
type Indexer struct {
	client *elasticsearch.Client
	index  string
	now    func() time.Time
}

// NewIndexer creates an archive indexer writing to index.
func NewIndexer(client *elasticsearch.Client, index string) (*Indexer, error) {
	if index == "" {
		return nil, ErrMissingIndex
	}
	return &Indexer{client: client, index: index, now: time.Now}, nil
}

func (i *Indexer) Name() string { return "archive" }

// Record bulk-indexes the result's listings. Empty results are skipped.
func (i *Indexer) Record(ctx context.Context, result *comps.SearchResult) error {
	if len(result.Listings) == 0 {
		return nil
	}

	archivedAt := i.now().UTC()
	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, l := range result.Listings {
		meta := map[string]interface{}{"index": map[string]interface{}{"_id": DocumentID(l.URL)}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("%w: %v", ErrIndexFailed, err)
		}
		doc := Document{
			Listing:        l,
			SearchID:       result.SearchID,
			SearchStrategy: result.SearchStrategy,
			SearchKeywords: result.SearchKeywords,
			ArchivedAt:     archivedAt,
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("%w: %v", ErrIndexFailed, err)
		}
	}

	req := esapi.BulkRequest{
		Index: i.index,
		Body:  &body,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexFailed, res.Status())
	}

	var bulk struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode bulk response: %v", ErrIndexFailed, err)
	}
	if bulk.Errors {
		return fmt.Errorf("%w: bulk response reported item errors", ErrIndexFailed)
	}
	return nil
}

// Search returns archived listings whose title matches text, newest sale first.
func (i *Indexer) Search(ctx context.Context, text string, size int) ([]Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyQuery
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"title": map[string]interface{}{
					"query":    text,
					"operator": "and",
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"endDate": map[string]interface{}{"order": "desc"}},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{i.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, i.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode search response: %v", ErrSearchFailed, err)
	}

	docs := make([]Document, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		docs = append(docs, h.Source)
	}
	return docs, nil
}
