package core

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// UnknownTitle replaces a missing or empty title.
	UnknownTitle = "Unknown Title"
	// UnknownAuthor is the single author used when the catalog lists none.
	UnknownAuthor = "Unknown Author"
)

// Record is one catalog hit as shown on a card.
//
// FirstPublishYear and CoverID are pointers because absence carries meaning:
// a nil year is "unknown" and sorts differently from any real year, a nil
// cover id means the card shows the placeholder image.
type Record struct {
	ID               string   `json:"id"`
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Authors          []string `json:"authors"`
	FirstPublishYear *int     `json:"first_publish_year,omitempty"`
	CoverID          *int     `json:"cover_id,omitempty"`
}

// NewRecord builds a normalized record. Empty titles and author lists are
// replaced by their placeholders, zero years and non-positive cover ids are
// treated as absent.
func NewRecord(key, title string, authors []string, year, coverID int) Record {
	r := Record{
		ID:    IDFromKey(key),
		Key:   key,
		Title: strings.TrimSpace(title),
	}
	if r.Title == "" {
		r.Title = UnknownTitle
	}
	for _, a := range authors {
		if a = strings.TrimSpace(a); a != "" {
			r.Authors = append(r.Authors, a)
		}
	}
	if len(r.Authors) == 0 {
		r.Authors = []string{UnknownAuthor}
	}
	if year != 0 {
		y := year
		r.FirstPublishYear = &y
	}
	if coverID > 0 {
		c := coverID
		r.CoverID = &c
	}
	return r
}

// IDFromKey strips the catalog path from a work key: "/works/OL45804W"
// becomes "OL45804W". Bare ids are returned unchanged.
func IDFromKey(key string) string {
	key = strings.TrimSpace(key)
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}

// HasYear reports whether the first publication year is known.
func (r Record) HasYear() bool {
	return r.FirstPublishYear != nil
}

// Year returns the first publication year as text, or "" when unknown.
func (r Record) Year() string {
	if r.FirstPublishYear == nil {
		return ""
	}
	return strconv.Itoa(*r.FirstPublishYear)
}

// PrimaryAuthor is the author shown on the card.
func (r Record) PrimaryAuthor() string {
	if len(r.Authors) == 0 {
		return UnknownAuthor
	}
	return r.Authors[0]
}

// PrettyText renders the record for terminal output.
func (r Record) PrettyText() string {
	var b strings.Builder
	b.WriteString("📖 " + r.Title)
	b.WriteString("\n  by " + strings.Join(r.Authors, ", "))
	if y := r.Year(); y != "" {
		b.WriteString("\n  First published: " + y)
	}
	b.WriteString(fmt.Sprintf("\n  ID: %s", r.ID))
	return b.String()
}
