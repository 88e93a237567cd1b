package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rubiojr/bookexplorer/pkg/config"
	"github.com/rubiojr/bookexplorer/pkg/core"
	"github.com/rubiojr/bookexplorer/pkg/log"
	"github.com/rubiojr/bookexplorer/pkg/metrics"
	"github.com/rubiojr/bookexplorer/pkg/version"
	"golang.org/x/time/rate"
)

var logger = log.ForService("catalog")

const searchFields = "key,title,author_name,first_publish_year,cover_i"

// Options configures a Client.
type Options struct {
	BaseURL             string
	CoversURL           string
	PlaceholderCoverURL string
	UserAgent           string
	Timeout             time.Duration
	// RequestsPerSecond throttles outgoing requests on the client side.
	// Zero disables throttling.
	RequestsPerSecond float64
}

// OptionsFromConfig maps the [catalog] configuration section to Options.
func OptionsFromConfig(c config.CatalogConfig) Options {
	return Options{
		BaseURL:             c.BaseURL,
		CoversURL:           c.CoversURL,
		PlaceholderCoverURL: c.PlaceholderCoverURL,
		UserAgent:           c.UserAgent,
		Timeout:             c.Timeout.Duration,
		RequestsPerSecond:   c.RequestsPerSecond,
	}
}

// Client issues read-only requests against the Open Library catalog. It never
// caches and never retries; every call is a fresh request.
type Client struct {
	mu      sync.RWMutex
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a catalog client.
func NewClient(opts Options) *Client {
	c := &Client{}
	c.Reconfigure(opts)
	return c
}

// Reconfigure replaces the client options. Requests already in flight finish
// with the previous settings.
func (c *Client) Reconfigure(opts Options) {
	if opts.BaseURL == "" {
		opts.BaseURL = config.DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.CoversURL == "" {
		opts.CoversURL = config.DefaultCoversURL
	}
	opts.CoversURL = strings.TrimRight(opts.CoversURL, "/")
	if opts.PlaceholderCoverURL == "" {
		opts.PlaceholderCoverURL = config.DefaultPlaceholder
	}
	if opts.UserAgent == "" {
		opts.UserAgent = version.UserAgent()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts = opts
	c.http = newHTTPClient(opts.Timeout)
	c.limiter = limiter
}

func newHTTPClient(timeout time.Duration) *http.Client {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &http.Client{Transport: t, Timeout: timeout}
}

func (c *Client) settings() (Options, *http.Client, *rate.Limiter) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opts, c.http, c.limiter
}

// Search fetches one page of results for query. Pages are 1-based and always
// requested with config.PageSize records.
func (c *Client) Search(ctx context.Context, query string, page int) (*Page, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidQuery)
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page %d is not positive", ErrInvalidQuery, page)
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("page", fmt.Sprintf("%d", page))
	params.Set("limit", fmt.Sprintf("%d", config.PageSize))
	params.Set("fields", searchFields)

	var raw searchResponse
	if err := c.getJSON(ctx, "search", "/search.json?"+params.Encode(), &raw); err != nil {
		return nil, err
	}

	records, fetched, err := normalizeDocs(raw.Docs)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", ErrMalformed, err)
	}
	if len(records) > config.PageSize {
		records = records[:config.PageSize]
	}
	fetched = min(fetched, config.PageSize)

	total := 0
	switch {
	case raw.NumFound != nil:
		total = *raw.NumFound
	case raw.NumFoundAlt != nil:
		total = *raw.NumFoundAlt
	}

	logger.Debugf("search %q page %d: %d records, %d available", q, page, len(records), total)

	return &Page{
		Query:          q,
		Number:         page,
		Records:        records,
		TotalAvailable: total,
		PageSize:       config.PageSize,
		Fetched:        fetched,
	}, nil
}

// normalizeDocs turns the raw docs array into records and also returns the
// raw array length. A missing array is an empty page; anything other than an
// array is malformed. Individual docs that cannot be decoded or lack a key
// are skipped.
func normalizeDocs(docs json.RawMessage) ([]core.Record, int, error) {
	trimmed := strings.TrimSpace(string(docs))
	if trimmed == "" || trimmed == "null" {
		return []core.Record{}, 0, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(docs, &items); err != nil {
		return nil, 0, fmt.Errorf("docs is not an array: %w", err)
	}

	records := make([]core.Record, 0, len(items))
	index := make(map[string]int, len(items))
	for i, item := range items {
		var doc searchDoc
		if err := json.Unmarshal(item, &doc); err != nil {
			logger.Warnf("skipping undecodable doc %d: %v", i, err)
			continue
		}
		if strings.TrimSpace(doc.Key) == "" {
			logger.Debugf("skipping doc %d without key", i)
			continue
		}
		r := core.NewRecord(doc.Key, doc.Title, doc.AuthorName, int(doc.FirstPublishYear), int(doc.CoverI))
		if pos, seen := index[r.ID]; seen {
			records[pos] = r
			continue
		}
		index[r.ID] = len(records)
		records = append(records, r)
	}
	return records, len(items), nil
}

// Work fetches work-level metadata for a record id such as "OL45804W".
func (c *Client) Work(ctx context.Context, id string) (*Work, error) {
	id = core.IDFromKey(id)
	if id == "" {
		return nil, fmt.Errorf("%w: work id is empty", ErrInvalidQuery)
	}

	var w Work
	if err := c.getJSON(ctx, "work", "/works/"+url.PathEscape(id)+".json", &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// FirstEdition fetches the first edition listed for a work.
func (c *Client) FirstEdition(ctx context.Context, id string) (*Edition, error) {
	id = core.IDFromKey(id)
	if id == "" {
		return nil, fmt.Errorf("%w: work id is empty", ErrInvalidQuery)
	}

	var resp editionsResponse
	if err := c.getJSON(ctx, "editions", "/works/"+url.PathEscape(id)+"/editions.json?limit=1", &resp); err != nil {
		return nil, err
	}
	if len(resp.Entries) == 0 {
		return nil, fmt.Errorf("%w: work %s", ErrNoEditions, id)
	}
	return &resp.Entries[0], nil
}

// CoverURL derives the cover image URL for a cover id. Size is one of S, M
// or L (M when empty or unknown). A nil id yields the placeholder image.
func (c *Client) CoverURL(coverID *int, size string) string {
	opts, _, _ := c.settings()
	if coverID == nil || *coverID <= 0 {
		return opts.PlaceholderCoverURL
	}
	switch size = strings.ToUpper(size); size {
	case "S", "M", "L":
	default:
		size = "M"
	}
	return fmt.Sprintf("%s/b/id/%d-%s.jpg", opts.CoversURL, *coverID, size)
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, v any) error {
	opts, hc, limiter := c.settings()

	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.CatalogRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
		metrics.CatalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			outcome = "network"
			return fmt.Errorf("%w: %s: waiting for rate limiter: %w", ErrNetwork, endpoint, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.BaseURL+path, nil)
	if err != nil {
		outcome = "network"
		return fmt.Errorf("%w: %s: building request: %w", ErrNetwork, endpoint, err)
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	logger.Debugf("GET %s", req.URL.String())

	resp, err := hc.Do(req)
	if err != nil {
		outcome = "network"
		return fmt.Errorf("%w: %s: %w", ErrNetwork, endpoint, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = "remote"
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &RemoteError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome = "network"
		return fmt.Errorf("%w: %s: reading body: %w", ErrNetwork, endpoint, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		outcome = "malformed"
		return fmt.Errorf("%w: %s: %w", ErrMalformed, endpoint, err)
	}

	return nil
}
