// Package sorter orders a result set for display. Sorting is pure: the input
// slice is never modified and a new slice is always returned.
package sorter

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/rubiojr/bookexplorer/pkg/core"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Mode selects the ordering applied to a result set.
type Mode string

const (
	Relevance Mode = "relevance"
	Newest    Mode = "newest"
	Oldest    Mode = "oldest"
	Title     Mode = "title"
)

var labels = map[Mode]string{
	Relevance: "Relevance",
	Newest:    "Newest First",
	Oldest:    "Oldest First",
	Title:     "Title A-Z",
}

// Modes lists the supported modes in menu order.
func Modes() []Mode {
	return []Mode{Relevance, Newest, Oldest, Title}
}

// Label is the human readable name of the mode.
func (m Mode) Label() string {
	if l, ok := labels[m]; ok {
		return l
	}
	return string(m)
}

// ParseMode accepts the mode names plus the short "new" and "old" aliases.
// An empty string is Relevance.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "relevance":
		return Relevance, nil
	case "newest", "new":
		return Newest, nil
	case "oldest", "old":
		return Oldest, nil
	case "title":
		return Title, nil
	}
	return "", fmt.Errorf("unknown sort mode %q", s)
}

// Sort returns records ordered by mode.
//
//	relevance  remote order
//	newest     year descending, unknown years last, then title
//	oldest     year ascending, unknown years last, then title
//	title      title ascending, then year descending (unknown lowest)
//
// Titles compare case-insensitively with English collation. Records equal
// under both keys keep their input order, so sorting a sorted slice again
// yields the same slice.
func Sort(records []core.Record, mode Mode) []core.Record {
	out := slices.Clone(records)
	if out == nil {
		out = []core.Record{}
	}

	col := collate.New(language.English, collate.IgnoreCase)
	byTitle := func(a, b core.Record) int {
		return col.CompareString(a.Title, b.Title)
	}

	switch mode {
	case Newest:
		slices.SortStableFunc(out, func(a, b core.Record) int {
			if c := yearsKnownLast(a, b, true); c != 0 {
				return c
			}
			return byTitle(a, b)
		})
	case Oldest:
		slices.SortStableFunc(out, func(a, b core.Record) int {
			if c := yearsKnownLast(a, b, false); c != 0 {
				return c
			}
			return byTitle(a, b)
		})
	case Title:
		slices.SortStableFunc(out, func(a, b core.Record) int {
			if c := byTitle(a, b); c != 0 {
				return c
			}
			return yearsUnknownLowestDesc(a, b)
		})
	}

	return out
}

// yearsKnownLast orders by year, placing records without a year after all
// records with one regardless of direction.
func yearsKnownLast(a, b core.Record, desc bool) int {
	switch {
	case a.FirstPublishYear == nil && b.FirstPublishYear == nil:
		return 0
	case a.FirstPublishYear == nil:
		return 1
	case b.FirstPublishYear == nil:
		return -1
	}
	if desc {
		return cmp.Compare(*b.FirstPublishYear, *a.FirstPublishYear)
	}
	return cmp.Compare(*a.FirstPublishYear, *b.FirstPublishYear)
}

// yearsUnknownLowestDesc orders by year descending with unknown years
// treated as lower than any known year.
func yearsUnknownLowestDesc(a, b core.Record) int {
	switch {
	case a.FirstPublishYear == nil && b.FirstPublishYear == nil:
		return 0
	case a.FirstPublishYear == nil:
		return 1
	case b.FirstPublishYear == nil:
		return -1
	}
	return cmp.Compare(*b.FirstPublishYear, *a.FirstPublishYear)
}
