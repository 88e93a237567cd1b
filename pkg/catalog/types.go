package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rubiojr/bookexplorer/pkg/core"
)

// Page is one normalized page of search results.
type Page struct {
	Query          string        `json:"query"`
	Number         int           `json:"page"`
	Records        []core.Record `json:"records"`
	TotalAvailable int           `json:"total_available"`
	PageSize       int           `json:"page_size"`
	// Fetched is the number of docs the catalog returned, capped at
	// PageSize, before keyless docs were skipped and duplicates collapsed.
	Fetched int `json:"fetched"`
}

// Work is the work-level metadata of a catalog entry.
type Work struct {
	Key           string  `json:"key"`
	Title         string  `json:"title"`
	Description   Text    `json:"description"`
	Subjects      Strings `json:"subjects"`
	FirstSentence Text    `json:"first_sentence"`
	PublishPlaces Strings `json:"publish_places"`
}

// Edition is the edition-level metadata; only the first edition of a work is
// ever requested.
type Edition struct {
	Key           string  `json:"key"`
	Description   Text    `json:"description"`
	ISBN13        Strings `json:"isbn_13"`
	ISBN10        Strings `json:"isbn_10"`
	NumberOfPages Int     `json:"number_of_pages"`
	Publishers    Strings `json:"publishers"`
	PublishPlaces Strings `json:"publish_places"`
}

// ISBNs returns ISBN-13 identifiers first, then ISBN-10.
func (e Edition) ISBNs() []string {
	out := make([]string, 0, len(e.ISBN13)+len(e.ISBN10))
	out = append(out, e.ISBN13...)
	return append(out, e.ISBN10...)
}

// Text decodes a catalog text field that is either a plain string or an
// object of the form {"type": "/type/text", "value": "..."}.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{':
		var v struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*t = Text(v.Value)
	default:
		*t = ""
	}
	return nil
}

func (t Text) String() string {
	return strings.TrimSpace(string(t))
}

// Strings decodes a list of strings, skipping elements of any other type.
// A single string is accepted as a one element list.
type Strings []string

func (s *Strings) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = nil
		return nil
	}
	if b[0] == '"' {
		var one string
		if err := json.Unmarshal(b, &one); err != nil {
			return err
		}
		*s = Strings{one}
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		*s = nil
		return nil
	}
	out := make(Strings, 0, len(items))
	for _, item := range items {
		var v string
		if json.Unmarshal(item, &v) == nil && strings.TrimSpace(v) != "" {
			out = append(out, strings.TrimSpace(v))
		}
	}
	*s = out
	return nil
}

// Int decodes a number that the catalog sometimes sends as a string. Values
// that cannot be read as an integer decode to zero.
type Int int

func (n *Int) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*n = 0
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var f float64
	if json.Unmarshal(b, &f) == nil {
		*n = Int(f)
		return nil
	}
	var s string
	if json.Unmarshal(b, &s) == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*n = Int(v)
		}
	}
	return nil
}

type searchResponse struct {
	NumFound    *int            `json:"numFound"`
	NumFoundAlt *int            `json:"num_found"`
	Docs        json.RawMessage `json:"docs"`
}

type searchDoc struct {
	Key              string  `json:"key"`
	Title            string  `json:"title"`
	AuthorName       Strings `json:"author_name"`
	FirstPublishYear Int     `json:"first_publish_year"`
	CoverI           Int     `json:"cover_i"`
}

type editionsResponse struct {
	Entries []Edition `json:"entries"`
}
