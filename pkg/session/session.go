// Package session bundles one user's search state: the debounced search
// controller, the accumulated results, the per-record detail cache and the
// selected sort mode.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rubiojr/bookexplorer/pkg/catalog"
	"github.com/rubiojr/bookexplorer/pkg/core"
	"github.com/rubiojr/bookexplorer/pkg/detail"
	"github.com/rubiojr/bookexplorer/pkg/log"
	"github.com/rubiojr/bookexplorer/pkg/realtime"
	"github.com/rubiojr/bookexplorer/pkg/recent"
	"github.com/rubiojr/bookexplorer/pkg/results"
	"github.com/rubiojr/bookexplorer/pkg/search"
	"github.com/rubiojr/bookexplorer/pkg/sorter"
)

var logger = log.ForService("session")

var (
	ErrNotFound      = errors.New("session not found")
	ErrUnknownRecord = errors.New("record not in current results")
)

// Catalog is the subset of the catalog client a session needs.
type Catalog interface {
	results.Fetcher
	detail.Source
}

// Deps are shared by every session of a manager.
type Deps struct {
	Catalog Catalog
	// Recent is shared across sessions. A nil store keeps an in-memory list
	// per session.
	Recent recent.Store
	Search search.Options
}

// View is what a presentation layer renders.
type View struct {
	ID      string        `json:"id"`
	Text    string        `json:"text"`
	Query   string        `json:"query"`
	Records []core.Record `json:"records"`
	Loading bool          `json:"loading"`
	Error   string        `json:"error,omitempty"`
	// ErrorKind classifies Error: invalid_query, network, remote or malformed.
	ErrorKind string      `json:"error_kind,omitempty"`
	HasMore   bool        `json:"has_more"`
	Total     int         `json:"total"`
	Page      int         `json:"page"`
	Sort      sorter.Mode `json:"sort"`
	Empty     bool        `json:"empty"`
}

type Session struct {
	id       string
	agg      *results.Aggregator
	ctrl     *search.Controller
	enricher *detail.Enricher
	recent   recent.Store
	hub      *realtime.Hub

	mu       sync.Mutex
	mode     sorter.Mode
	lastSeen time.Time
}

type committerFunc func(ctx context.Context, query string) error

func (f committerFunc) Reset(ctx context.Context, query string) error { return f(ctx, query) }

// New creates a session. Most callers go through Manager.Create.
func New(id string, deps Deps) *Session {
	store := deps.Recent
	if store == nil {
		store = recent.NewMemory(recent.DefaultLimit)
	}

	s := &Session{
		id:       id,
		agg:      results.New(deps.Catalog),
		enricher: detail.NewEnricher(deps.Catalog),
		recent:   store,
		hub:      realtime.NewHub(0),
		mode:     sorter.Relevance,
		lastSeen: time.Now(),
	}
	s.ctrl = search.NewController(committerFunc(s.reset), store, deps.Search)
	s.ctrl.OnCommit(func(q string) {
		s.hub.Publish(realtime.NewEvent(realtime.TypeCommit, s.id, q))
	})
	s.agg.OnChange(func(st results.State) {
		s.hub.Publish(realtime.NewEvent(realtime.TypeView, s.id, s.viewFrom(st)))
	})
	return s
}

func (s *Session) ID() string { return s.id }

// reset starts a new query. Details belong to the previous result set and
// are dropped.
func (s *Session) reset(ctx context.Context, query string) error {
	s.enricher.Forget()
	return s.agg.Reset(ctx, query)
}

// Input feeds a keystroke to the debounced controller.
func (s *Session) Input(text string) View {
	s.touch()
	s.ctrl.Input(text)
	return s.View()
}

// Submit commits text immediately and waits for the first page.
func (s *Session) Submit(ctx context.Context, text string) (View, error) {
	s.touch()
	err := s.ctrl.Submit(ctx, text)
	return s.View(), ignoreSuperseded(err)
}

// LoadMore appends the next page when there is one.
func (s *Session) LoadMore(ctx context.Context) (View, error) {
	s.touch()
	err := s.agg.LoadMore(ctx)
	return s.View(), ignoreSuperseded(err)
}

// Retry re-issues the last failed page request.
func (s *Session) Retry(ctx context.Context) (View, error) {
	s.touch()
	err := s.agg.Retry(ctx)
	return s.View(), ignoreSuperseded(err)
}

// SetSort changes the display order. Records are re-sorted, never refetched.
func (s *Session) SetSort(mode sorter.Mode) View {
	s.touch()
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()

	v := s.View()
	s.hub.Publish(realtime.NewEvent(realtime.TypeView, s.id, v))
	return v
}

func (s *Session) Sort() sorter.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// View returns the current sorted view.
func (s *Session) View() View {
	return s.viewFrom(s.agg.Snapshot())
}

func (s *Session) viewFrom(st results.State) View {
	mode := s.Sort()
	var kind string
	if st.Err != "" {
		kind = catalog.Kind(s.agg.LastError())
	}
	return View{
		ID:        s.id,
		Text:      s.ctrl.Text(),
		Query:     st.Query,
		Records:   sorter.Sort(st.Records, mode),
		Loading:   st.Loading,
		Error:     st.Err,
		ErrorKind: kind,
		HasMore:   st.HasMore,
		Total:     st.TotalAvailable,
		Page:      st.CurrentPage,
		Sort:      mode,
		Empty:     st.Empty(),
	}
}

// Details enriches one record of the current result set.
func (s *Session) Details(ctx context.Context, recordID string) (core.Detail, error) {
	s.touch()
	if !s.hasRecord(recordID) {
		return core.Detail{RecordID: recordID}, ErrUnknownRecord
	}
	d, err := s.enricher.Fetch(ctx, recordID)
	if d.Status != core.Loading {
		s.hub.Publish(realtime.NewEvent(realtime.TypeDetail, s.id, d))
	}
	return d, err
}

func (s *Session) hasRecord(id string) bool {
	for _, r := range s.agg.Snapshot().Records {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Recent lists the recent search terms.
func (s *Session) Recent(ctx context.Context) ([]string, error) {
	return s.recent.List(ctx)
}

// Subscribe registers an event listener. The caller must Unsubscribe.
func (s *Session) Subscribe() (uint64, <-chan realtime.Event) {
	s.touch()
	return s.hub.Register()
}

func (s *Session) Unsubscribe(id uint64) {
	s.hub.Unregister(id)
}

// Close cancels any pending commit and closes every listener.
func (s *Session) Close() {
	s.ctrl.Close()
	s.hub.Close()
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) listeners() int {
	return s.hub.Size()
}

func ignoreSuperseded(err error) error {
	if errors.Is(err, results.ErrSuperseded) {
		return nil
	}
	return err
}
