// internal/marketplace/client.go
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "comps-workers/internal/common/errors"
	commonhttp "comps-workers/internal/common/http"
	"comps-workers/internal/common/logger"
)

var (
	ErrMissingCredentials = errors.New("MARKETPLACE_CREDENTIALS_MISSING")
	ErrTimeout            = errors.New("MARKETPLACE_TIMEOUT")
	ErrUnexpectedStatus   = errors.New("MARKETPLACE_UNEXPECTED_STATUS")
	ErrMalformedResponse  = errors.New("MARKETPLACE_RESPONSE_MALFORMED")
	ErrMarketplaceFailure = errors.New("MARKETPLACE_ACK_FAILURE")
)

const operationFindCompletedItems = "findCompletedItems"

// Config describes the completed-items endpoint.
type Config struct {
	BaseURL        string
	AppID          string
	GlobalID       string
	ServiceVersion string
	Currency       string
	Timeout        time.Duration
}

// Client calls the finding service's findCompletedItems operation.
type Client struct {
	config *Config
	http   *commonhttp.Client
	logger logger.Logger
	now    func() time.Time
}

// NewClient creates a findCompletedItems client. Timeout bounds each call.
func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		http:   commonhttp.NewClient(config.Timeout).WithHeader("Accept", "application/json"),
		logger: log.WithFields(map[string]interface{}{"component": "marketplace-client"}),
		now:    time.Now,
	}
}

// WithClock overrides the time source used for EndTimeFrom.
func (c *Client) WithClock(now func() time.Time) *Client {
	c.now = now
	return c
}

// Search performs one blocking completed-items query. It never retries.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]Listing, error) {
	if c.config.AppID == "" {
		return nil, apperrors.NewCredentialsMissingError("marketplace app id is empty").
			WithMetadata("cause", ErrMissingCredentials.Error())
	}

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	start := time.Now()
	resp, err := c.http.Get(ctx, searchURL)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, apperrors.NewMarketplaceTimeoutError(fmt.Errorf("%w: %v", ErrTimeout, err))
		}
		return nil, apperrors.NewMarketplaceRequestError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewMarketplaceRequestError(
			fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, apperrors.NewMarketplaceTimeoutError(fmt.Errorf("%w: %v", ErrTimeout, err))
		}
		return nil, apperrors.NewMarketplaceRequestError(err)
	}

	listings, err := parseCompletedItems(body, c.config.Currency)
	if err != nil {
		if errors.Is(err, ErrMarketplaceFailure) {
			return nil, apperrors.NewMarketplaceRequestError(err)
		}
		return nil, apperrors.NewMalformedResponseError(err)
	}

	c.logger.Debug("completed items fetched", map[string]interface{}{
		"query":      params.Query,
		"count":      len(listings),
		"durationMs": time.Since(start).Milliseconds(),
	})

	return listings, nil
}

func (c *Client) buildSearchURL(params SearchParams) (string, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse marketplace base url: %w", err)
	}

	limit := params.Limit
	if limit < 1 {
		limit = 1
	}
	if limit > MaxEntriesPerPage {
		limit = MaxEntriesPerPage
	}

	q := url.Values{}
	q.Set("OPERATION-NAME", operationFindCompletedItems)
	q.Set("SERVICE-VERSION", c.config.ServiceVersion)
	q.Set("SECURITY-APPNAME", c.config.AppID)
	q.Set("GLOBAL-ID", c.config.GlobalID)
	q.Set("RESPONSE-DATA-FORMAT", "JSON")
	q.Set("REST-PAYLOAD", "")
	q.Set("keywords", params.Query)
	q.Set("paginationInput.entriesPerPage", strconv.Itoa(limit))
	q.Set("sortOrder", "EndTimeSoonest")

	endTimeFrom := c.now().UTC().Add(-params.Window).Format("2006-01-02T15:04:05.000Z")

	filters := []itemFilter{
		{name: "SoldItemsOnly", value: "true"},
		{name: "EndTimeFrom", value: endTimeFrom},
		{name: "MinPrice", value: formatPrice(MinPrice), paramName: "Currency", paramValue: c.config.Currency},
	}
	if params.MaxPrice != nil {
		filters = append(filters, itemFilter{
			name: "MaxPrice", value: formatPrice(*params.MaxPrice), paramName: "Currency", paramValue: c.config.Currency,
		})
	}
	for i, f := range filters {
		prefix := fmt.Sprintf("itemFilter(%d).", i)
		q.Set(prefix+"name", f.name)
		q.Set(prefix+"value", f.value)
		if f.paramName != "" {
			q.Set(prefix+"paramName", f.paramName)
			q.Set(prefix+"paramValue", f.paramValue)
		}
	}

	base.RawQuery = q.Encode()
	return base.String(), nil
}

type itemFilter struct {
	name       string
	value      string
	paramName  string
	paramValue string
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
