// Package results accumulates catalog pages for the current query.
//
// An Aggregator owns the record list, the pagination cursor and the loading
// and error flags. Every Reset bumps a generation counter; a response is only
// applied when the generation it was issued under is still current, so a slow
// answer for an earlier query can never overwrite the state of a later one.
package results

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rubiojr/bookexplorer/pkg/catalog"
	"github.com/rubiojr/bookexplorer/pkg/config"
	"github.com/rubiojr/bookexplorer/pkg/core"
	"github.com/rubiojr/bookexplorer/pkg/log"
	"github.com/rubiojr/bookexplorer/pkg/metrics"
)

var logger = log.ForService("results")

// ErrSuperseded is returned when a fetch finished after a newer Reset; its
// response was discarded.
var ErrSuperseded = errors.New("response superseded by a newer query")

// Fetcher retrieves one page of search results.
type Fetcher interface {
	Search(ctx context.Context, query string, page int) (*catalog.Page, error)
}

// State is a point in time copy of the aggregator for presentation.
type State struct {
	Query          string        `json:"query"`
	Records        []core.Record `json:"records"`
	CurrentPage    int           `json:"current_page"`
	HasMore        bool          `json:"has_more"`
	TotalAvailable int           `json:"total_available"`
	Loading        bool          `json:"loading"`
	Err            string        `json:"error,omitempty"`
	Generation     uint64        `json:"generation"`
}

// Empty reports a completed search that matched nothing. It is distinct
// from an error and from "no search yet".
func (s State) Empty() bool {
	return s.Query != "" && !s.Loading && s.Err == "" && len(s.Records) == 0
}

type Aggregator struct {
	fetcher Fetcher

	mu          sync.Mutex
	query       string
	records     []core.Record
	index       map[string]int
	currentPage int
	hasMore     bool
	total       int
	loading     bool
	lastErr     error
	failedPage  int
	generation  uint64
	onChange    func(State)

	notifyMu sync.Mutex
}

// New creates an aggregator backed by f.
func New(f Fetcher) *Aggregator {
	return &Aggregator{
		fetcher:     f,
		index:       make(map[string]int),
		currentPage: 1,
	}
}

// OnChange registers fn to be called with a fresh snapshot after every state
// transition. Calls are serialized and always observe the latest state.
func (a *Aggregator) OnChange(fn func(State)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onChange = fn
}

// Reset starts a new query: the record list is cleared, the cursor goes back
// to page 1 and page 1 is fetched. On success the records are replaced
// wholesale. Reset returns ErrSuperseded when another Reset happened while
// the fetch was in flight.
func (a *Aggregator) Reset(ctx context.Context, query string) error {
	q := strings.TrimSpace(query)

	a.mu.Lock()
	a.generation++
	gen := a.generation
	a.query = q
	a.records = nil
	a.index = make(map[string]int)
	a.currentPage = 1
	a.hasMore = false
	a.total = 0
	a.lastErr = nil
	a.failedPage = 0
	a.loading = q != ""
	a.mu.Unlock()

	if q == "" {
		a.emit()
		return fmt.Errorf("%w: query is empty", catalog.ErrInvalidQuery)
	}

	logger.Debugf("reset %q (generation %d)", q, gen)
	a.emit()
	return a.fetch(ctx, gen, q, 1)
}

// LoadMore fetches the next page and appends it. It is a no-op when there is
// nothing more to load, when no query is set, or when a fetch is already in
// flight. A failure leaves the accumulated records untouched.
func (a *Aggregator) LoadMore(ctx context.Context) error {
	a.mu.Lock()
	if a.query == "" || a.loading || !a.hasMore {
		a.mu.Unlock()
		return nil
	}
	gen := a.generation
	q := a.query
	next := a.currentPage + 1
	a.loading = true
	a.lastErr = nil
	a.mu.Unlock()

	a.emit()
	return a.fetch(ctx, gen, q, next)
}

// Retry re-issues the request that failed last: page 1 after a failed Reset,
// the next page after a failed LoadMore. It is a no-op without a failure.
func (a *Aggregator) Retry(ctx context.Context) error {
	a.mu.Lock()
	if a.lastErr == nil || a.loading || a.query == "" {
		a.mu.Unlock()
		return nil
	}
	gen := a.generation
	q := a.query
	page := a.failedPage
	a.loading = true
	a.lastErr = nil
	a.mu.Unlock()

	logger.Debugf("retry %q page %d", q, page)
	a.emit()
	return a.fetch(ctx, gen, q, page)
}

func (a *Aggregator) fetch(ctx context.Context, gen uint64, q string, page int) error {
	p, err := a.fetcher.Search(ctx, q, page)

	a.mu.Lock()
	if gen != a.generation {
		a.mu.Unlock()
		metrics.StaleResponsesTotal.Inc()
		logger.Debugf("discarding stale response for %q page %d", q, page)
		return ErrSuperseded
	}

	a.loading = false
	if err != nil {
		a.lastErr = err
		a.failedPage = page
		a.mu.Unlock()
		logger.Warnf("fetching %q page %d: %v", q, page, err)
		a.emit()
		return err
	}

	if page == 1 {
		a.records = make([]core.Record, 0, len(p.Records))
		a.index = make(map[string]int, len(p.Records))
	}
	for _, r := range p.Records {
		if pos, ok := a.index[r.ID]; ok {
			a.records[pos] = r
			continue
		}
		a.index[r.ID] = len(a.records)
		a.records = append(a.records, r)
	}

	size := p.PageSize
	if size <= 0 {
		size = config.PageSize
	}
	a.currentPage = page
	a.total = p.TotalAvailable
	// a full page from the catalog counts even if dedup shrank it
	fetched := max(p.Fetched, len(p.Records))
	a.hasMore = fetched == size && page*size < p.TotalAvailable
	a.lastErr = nil
	a.failedPage = 0
	count := len(a.records)
	a.mu.Unlock()

	logger.Debugf("%q page %d applied: %d records total, more=%v", q, page, count, a.hasMore)
	a.emit()
	return nil
}

// Snapshot returns a copy of the current state.
func (a *Aggregator) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Aggregator) snapshotLocked() State {
	s := State{
		Query:          a.query,
		Records:        slices.Clone(a.records),
		CurrentPage:    a.currentPage,
		HasMore:        a.hasMore,
		TotalAvailable: a.total,
		Loading:        a.loading,
		Generation:     a.generation,
	}
	if s.Records == nil {
		s.Records = []core.Record{}
	}
	if a.lastErr != nil {
		s.Err = a.lastErr.Error()
	}
	return s
}

// LastError returns the error of the last failed fetch, if it has not been
// cleared by a later success or reset.
func (a *Aggregator) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

func (a *Aggregator) emit() {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	fn := a.onChange
	s := a.snapshotLocked()
	a.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}
