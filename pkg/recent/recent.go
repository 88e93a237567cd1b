// Package recent keeps the short list of recently committed search terms.
package recent

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

// DefaultLimit is the number of terms kept.
const DefaultLimit = 5

// ErrEmptyTerm is returned when adding a blank term.
var ErrEmptyTerm = errors.New("empty search term")

// Store is an ordered, bounded, de-duplicated list of search terms, most
// recent first.
type Store interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, term string) ([]string, error)
	Clear(ctx context.Context) error
	Close() error
}

// push moves term to the front of list and bounds it to limit entries.
func push(list []string, term string, limit int) []string {
	out := make([]string, 0, limit)
	out = append(out, term)
	for _, t := range list {
		if len(out) == limit {
			break
		}
		if t != term {
			out = append(out, t)
		}
	}
	return out
}

func normalize(term string) (string, error) {
	t := strings.TrimSpace(term)
	if t == "" {
		return "", ErrEmptyTerm
	}
	return t, nil
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu    sync.Mutex
	limit int
	terms []string
}

// NewMemory creates an empty in-memory store keeping at most limit terms.
func NewMemory(limit int) *MemoryStore {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &MemoryStore{limit: limit}
}

func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.terms), nil
}

func (m *MemoryStore) Add(ctx context.Context, term string) ([]string, error) {
	t, err := normalize(term)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms = push(m.terms, t, m.limit)
	return slices.Clone(m.terms), nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms = nil
	return nil
}

func (m *MemoryStore) Close() error { return nil }
