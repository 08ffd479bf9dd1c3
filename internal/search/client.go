// Package search is a client for the catalog search API. It fetches ordered
// search results per (domain, query) pair for judgment collection.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/opencatalog/arcs/internal/core/errors"
)

const (
	defaultBaseURL = "http://api.us.socrata.com/api/catalog"
	defaultTimeout = 30 * time.Second
	defaultRPM     = 60

	secondsPerMinute = 60

	// aggregatorDomain hosts cross-domain search; it gets no domain
	// restriction parameters.
	aggregatorDomain = "www.opendatanetwork.com"

	// resultBufferFactor over-fetches so the language filter can discard
	// results without leaving the page short.
	resultBufferFactor = 2
)

// Result is one catalog search result. Position is the zero-based rank in
// the raw API response, before any filtering.
type Result struct {
	Position    int
	ID          string
	Name        string
	Link        string
	Description string
}

// Config holds catalog client configuration.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerMin int

	// Params are fixed extra query parameters sent with every request.
	Params map[string]string
}

// Client queries the catalog search API.
type Client struct {
	baseURL     string
	params      map[string]string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	log         zerolog.Logger
}

// NewClient creates a catalog search client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = defaultRPM
	}

	return &Client{
		baseURL: baseURL,
		params:  cfg.Params,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rpm)/secondsPerMinute), 1),
		log:         log.With().Str("component", "catalog").Logger(),
	}
}

type catalogResponse struct {
	Results []catalogResult `json:"results"`
}

type catalogResult struct {
	Resource struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"resource"`
	Link string `json:"link"`
}

// Results fetches up to numResults catalog results for a query on a domain.
// It over-fetches by the buffer factor, drops results whose descriptions do
// not look English, and truncates to numResults. Positions reflect the raw
// response order.
func (c *Client) Results(ctx context.Context, domain string, query Query, numResults int) ([]Result, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(domain, query, numResults), nil)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog status %d: %w", resp.StatusCode, apperrors.ErrUnexpectedStatus)
	}

	var parsed catalogResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse catalog json: %w", err)
	}

	results := make([]Result, 0, numResults)

	for i, res := range parsed.Results {
		if !isEnglish(res.Resource.Description) {
			continue
		}

		results = append(results, Result{
			Position:    i,
			ID:          res.Resource.ID,
			Name:        res.Resource.Name,
			Link:        res.Link,
			Description: res.Resource.Description,
		})

		if len(results) == numResults {
			break
		}
	}

	c.log.Debug().
		Str("domain", domain).
		Stringer("query", query).
		Int("raw", len(parsed.Results)).
		Int("kept", len(results)).
		Msg("fetched catalog results")

	return results, nil
}

func (c *Client) buildURL(domain string, query Query, numResults int) string {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(numResults*resultBufferFactor))

	for k, v := range c.params {
		params.Set(k, v)
	}

	if domain != "" && domain != aggregatorDomain {
		params.Set("search_context", domain)
		params.Set("domains", domain)
	}

	for k, v := range query.Params() {
		params.Set(k, v)
	}

	return c.baseURL + "?" + params.Encode()
}

// DomainQuery is one (domain, query) pair to collect results for.
type DomainQuery struct {
	Domain string
	Query  Query
}

// ResultSet pairs a DomainQuery with its fetched results.
type ResultSet struct {
	Domain  string
	Query   Query
	Results []Result
}

// ResultsForPairs fetches results for each pair in order. When filterShort
// is set, pairs that yielded fewer than numResults results are dropped; a
// short result list means the query is too thin to judge fairly.
func (c *Client) ResultsForPairs(ctx context.Context, pairs []DomainQuery, numResults int, filterShort bool) ([]ResultSet, error) {
	sets := make([]ResultSet, 0, len(pairs))

	for _, pair := range pairs {
		results, err := c.Results(ctx, pair.Domain, pair.Query, numResults)
		if err != nil {
			return nil, fmt.Errorf("results for %s on %s: %w", pair.Query, pair.Domain, err)
		}

		if filterShort && len(results) < numResults {
			continue
		}

		sets = append(sets, ResultSet{Domain: pair.Domain, Query: pair.Query, Results: results})
	}

	return sets, nil
}
