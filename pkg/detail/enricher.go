// Package detail lazily enriches a single search record with work and
// edition metadata.
package detail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/rubiojr/bookexplorer/pkg/catalog"
	"github.com/rubiojr/bookexplorer/pkg/core"
	"github.com/rubiojr/bookexplorer/pkg/log"
)

var logger = log.ForService("detail")

var (
	// ErrPartialEnrichment means the edition lookup failed but the work
	// lookup succeeded; the detail is still Loaded.
	ErrPartialEnrichment = errors.New("edition details unavailable")
	// ErrTotalEnrichment means the work lookup failed; the detail is Failed.
	ErrTotalEnrichment = errors.New("work details unavailable")
)

// Source provides the two catalog lookups needed for a detail.
type Source interface {
	Work(ctx context.Context, id string) (*catalog.Work, error)
	FirstEdition(ctx context.Context, id string) (*catalog.Edition, error)
}

type entry struct {
	detail core.Detail
	err    error
}

// Enricher fetches and caches details per record ID.
type Enricher struct {
	src    Source
	policy *bluemonday.Policy

	mu      sync.Mutex
	entries map[string]*entry
}

func NewEnricher(src Source) *Enricher {
	return &Enricher{
		src:     src,
		policy:  bluemonday.StrictPolicy(),
		entries: make(map[string]*entry),
	}
}

// Fetch returns the detail for recordID. A Loaded or Loading entry is
// returned from cache without any network call. Otherwise the work and the
// first edition are requested concurrently and merged.
//
// The returned error wraps ErrPartialEnrichment when only work data could be
// used, and ErrTotalEnrichment when the work lookup failed. A failed entry is
// fetched again on the next call.
func (e *Enricher) Fetch(ctx context.Context, recordID string) (core.Detail, error) {
	id := strings.TrimSpace(recordID)

	e.mu.Lock()
	if ent, ok := e.entries[id]; ok && (ent.detail.Status == core.Loaded || ent.detail.Status == core.Loading) {
		d, err := ent.detail.Clone(), ent.err
		e.mu.Unlock()
		return d, err
	}
	ent := &entry{detail: core.Detail{RecordID: id, Status: core.Loading}}
	e.entries[id] = ent
	e.mu.Unlock()

	var (
		wg               sync.WaitGroup
		work             *catalog.Work
		edition          *catalog.Edition
		workErr, editErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		work, workErr = e.src.Work(ctx, id)
	}()
	go func() {
		defer wg.Done()
		edition, editErr = e.src.FirstEdition(ctx, id)
	}()
	wg.Wait()

	var (
		d   core.Detail
		err error
	)
	switch {
	case workErr != nil:
		err = fmt.Errorf("%w: %w", ErrTotalEnrichment, workErr)
		d = core.Detail{RecordID: id, Status: core.Failed, Err: err.Error()}
		logger.Warnf("details for %s: %v", id, workErr)
	case editErr != nil:
		err = fmt.Errorf("%w: %w", ErrPartialEnrichment, editErr)
		d = e.merge(id, work, nil)
		d.PartialFailure = true
		logger.Debugf("details for %s without edition: %v", id, editErr)
	default:
		d = e.merge(id, work, edition)
	}

	e.mu.Lock()
	// Forget may have dropped the entry meanwhile.
	if cur, ok := e.entries[id]; ok && cur == ent {
		ent.detail = d
		ent.err = err
	}
	e.mu.Unlock()

	return d.Clone(), err
}

// Status returns the lifecycle state of recordID's detail.
func (e *Enricher) Status(recordID string) core.DetailStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ent, ok := e.entries[strings.TrimSpace(recordID)]; ok {
		return ent.detail.Status
	}
	return core.NotLoaded
}

// Cached returns the current detail for recordID without fetching.
func (e *Enricher) Cached(recordID string) core.Detail {
	id := strings.TrimSpace(recordID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if ent, ok := e.entries[id]; ok {
		return ent.detail.Clone()
	}
	return core.Detail{RecordID: id, Status: core.NotLoaded}
}

// Forget drops every cached entry.
func (e *Enricher) Forget() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = make(map[string]*entry)
}

func (e *Enricher) merge(id string, w *catalog.Work, ed *catalog.Edition) core.Detail {
	d := core.Detail{RecordID: id, Status: core.Loaded}

	var workDesc, editionDesc string
	if w != nil {
		workDesc = e.clean(string(w.Description))
		d.OpeningLine = e.clean(string(w.FirstSentence))
		d.Subjects = nonEmpty(w.Subjects)
		d.PublishPlaces = nonEmpty(w.PublishPlaces)
	}
	if ed != nil {
		editionDesc = e.clean(string(ed.Description))
		d.ISBNs = nonEmpty(ed.ISBNs())
		d.Publishers = nonEmpty(ed.Publishers)
		if n := int(ed.NumberOfPages); n > 0 {
			d.PageCount = &n
		}
		if len(d.PublishPlaces) == 0 {
			d.PublishPlaces = nonEmpty(ed.PublishPlaces)
		}
	}
	d.Description = longest(workDesc, editionDesc)
	return d
}

// clean decodes entities until the text is stable and then strips all
// markup. The result is HTML-escaped text and never carries tags.
func (e *Enricher) clean(s string) string {
	for i := 0; i < maxUnescapes; i++ {
		u := html.UnescapeString(s)
		if u == s {
			break
		}
		s = u
	}
	return strings.TrimSpace(e.policy.Sanitize(s))
}

const maxUnescapes = 4

// longest returns the longer of two descriptions, preferring a on ties.
// Length is measured on the decoded text.
func longest(a, b string) string {
	if displayLen(b) > displayLen(a) {
		return b
	}
	return a
}

func displayLen(s string) int {
	return utf8.RuneCountInString(html.UnescapeString(s))
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
