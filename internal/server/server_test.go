package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "comps-workers/internal/common/errors"
	"comps-workers/internal/common/logger"
	"comps-workers/internal/common/validation"
	"comps-workers/internal/comps"
	"comps-workers/internal/comps/archive"
	"comps-workers/internal/comps/history"
	"comps-workers/internal/marketplace"
	"comps-workers/pkg/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, req comps.SearchRequest) (*comps.SearchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*comps.SearchResult), args.Error(1)
}

type historyFunc func(ctx context.Context, limit int) ([]history.Entry, error)

func (f historyFunc) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	return f(ctx, limit)
}

type archiveFunc func(ctx context.Context, text string, size int) ([]archive.Document, error)

func (f archiveFunc) Search(ctx context.Context, text string, size int) ([]archive.Document, error) {
	return f(ctx, text, size)
}

type fakeChecker struct {
	name string
	err  error
}

func (c fakeChecker) Name() string                   { return c.name }
func (c fakeChecker) Ping(ctx context.Context) error { return c.err }

func newTestServer(t *testing.T, deps Deps) http.Handler {
	t.Helper()
	v, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)
	if deps.Search == nil {
		deps.Search = &mockSearcher{}
	}
	deps.Validator = v
	deps.Logger = logger.NewTestLogger(t)
	return New(":0", deps).Routes()
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestSearch_OK(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("Search", mock.Anything, comps.SearchRequest{
		Keywords:  []string{"gadget"},
		BrandName: "Acme",
		Limit:     5,
	}).Return(&comps.SearchResult{
		SearchID:       "search-1",
		Listings:       []marketplace.Listing{{Title: "Acme gadget", Price: 42, URL: "https://example.com/1"}},
		PriceStats:     comps.PriceStats{AveragePrice: 42, MinPrice: 42, MaxPrice: 42, TotalFound: 1},
		SearchStrategy: "brand_with_keywords",
		SearchKeywords: []string{"acme", "gadget"},
	}, nil)

	h := newTestServer(t, Deps{Search: searcher})
	rec, body := do(t, h, http.MethodPost, "/api/v1/comps/search", `{"keywords":["gadget"],"brandName":"Acme","limit":5}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "search-1", body["searchId"])
	assert.Equal(t, "brand_with_keywords", body["searchStrategy"])
	assert.Equal(t, 42.0, body["averagePrice"])
	assert.Equal(t, float64(1), body["totalFound"])
	assert.Len(t, body["listings"], 1)
	searcher.AssertExpectations(t)
}

func TestSearch_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"not json", `{"keywords":`, "INVALID_REQUEST_BODY"},
		{"missing keywords", `{"brandName":"Acme"}`, "VALIDATION_FAILED"},
		{"empty keywords", `{"keywords":[]}`, "VALIDATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &mockSearcher{}
			h := newTestServer(t, Deps{Search: searcher})

			rec, body := do(t, h, http.MethodPost, "/api/v1/comps/search", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			errBody := body["error"].(map[string]interface{})
			assert.Equal(t, tt.wantCode, errBody["code"])
			searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		})
	}
}

func TestSearch_BlankKeywordsRejectedByService(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("Search", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewValidationError("keywords must contain at least one non-empty entry"))

	rec, body := do(t, newTestServer(t, Deps{Search: searcher}), http.MethodPost, "/api/v1/comps/search", `{"keywords":["  "]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]interface{})["code"])
	assert.NotContains(t, body, "searchStrategy")
}

func TestSearch_SystemErrorReturnsErrorResult(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("Search", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewCredentialsMissingError("marketplace app id is not configured"))

	rec, body := do(t, newTestServer(t, Deps{Search: searcher}), http.MethodPost, "/api/v1/comps/search", `{"keywords":["gadget"]}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "error", body["searchStrategy"])
	assert.Equal(t, []interface{}{}, body["listings"])
	assert.Equal(t, 0.0, body["averagePrice"])
	assert.Equal(t, "MARKETPLACE_CREDENTIALS_MISSING", body["error"].(map[string]interface{})["code"])
}

func TestHistory(t *testing.T) {
	var gotLimit int
	reader := historyFunc(func(ctx context.Context, limit int) ([]history.Entry, error) {
		gotLimit = limit
		return []history.Entry{{SearchID: "s1", SearchStrategy: "keywords_only", SearchedAt: time.Now()}}, nil
	})
	h := newTestServer(t, Deps{History: reader})

	rec, body := do(t, h, http.MethodGet, "/api/v1/comps/history?limit=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, gotLimit)
	assert.Len(t, body["searches"], 1)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/comps/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory_ReadFailure(t *testing.T) {
	reader := historyFunc(func(ctx context.Context, limit int) ([]history.Entry, error) {
		return nil, apperrors.NewHistoryReadError(errors.New("connection reset"))
	})

	rec, body := do(t, newTestServer(t, Deps{History: reader}), http.MethodGet, "/api/v1/comps/history", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "HISTORY_READ_FAILED", body["error"].(map[string]interface{})["code"])
}

func TestHistory_Disabled(t *testing.T) {
	rec, _ := do(t, newTestServer(t, Deps{}), http.MethodGet, "/api/v1/comps/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArchive(t *testing.T) {
	searcher := archiveFunc(func(ctx context.Context, text string, size int) ([]archive.Document, error) {
		if strings.TrimSpace(text) == "" {
			return nil, archive.ErrEmptyQuery
		}
		if text == "boom" {
			return nil, archive.ErrSearchFailed
		}
		return []archive.Document{{Listing: marketplace.Listing{Title: text, URL: "u"}, SearchID: "s1"}}, nil
	})
	h := newTestServer(t, Deps{Archive: searcher})

	rec, body := do(t, h, http.MethodGet, "/api/v1/comps/archive?q=iphone&size=3", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["listings"], 1)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/comps/archive", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/comps/archive?q=boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthAndReady(t *testing.T) {
	h := newTestServer(t, Deps{Checkers: []Checker{fakeChecker{name: "redis"}}})

	rec, body := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	rec, body = do(t, h, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "ok", body["checks"].(map[string]interface{})["redis"])
}

func TestReady_DependencyDown(t *testing.T) {
	h := newTestServer(t, Deps{Checkers: []Checker{
		fakeChecker{name: "redis"},
		fakeChecker{name: "postgres", err: errors.New("postgres ping failed: refused")},
	}})

	rec, body := do(t, h, http.MethodGet, "/ready", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["redis"])
	assert.Contains(t, checks["postgres"], "refused")
}

func TestMetricsEndpoint(t *testing.T) {
	rec, _ := do(t, newTestServer(t, Deps{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteJSON_UnencodableBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"averagePrice": math.NaN()})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body["error"]["code"])
}

func TestMethodNotAllowed(t *testing.T) {
	rec, _ := do(t, newTestServer(t, Deps{}), http.MethodGet, "/api/v1/comps/search", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
