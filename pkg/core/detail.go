package core

// DetailStatus is the lifecycle of a lazily fetched detail record.
type DetailStatus int

const (
	NotLoaded DetailStatus = iota
	Loading
	Loaded
	Failed
)

func (s DetailStatus) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "not_loaded"
	}
}

func (s DetailStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Detail is the supplementary information for exactly one Record.
type Detail struct {
	RecordID      string       `json:"record_id"`
	Status        DetailStatus `json:"status"`
	Description   string       `json:"description,omitempty"`
	Subjects      []string     `json:"subjects,omitempty"`
	OpeningLine   string       `json:"opening_line,omitempty"`
	PublishPlaces []string     `json:"publish_places,omitempty"`
	ISBNs         []string     `json:"isbns,omitempty"`
	PageCount     *int         `json:"page_count,omitempty"`
	Publishers    []string     `json:"publishers,omitempty"`

	// PartialFailure is set when the edition lookup failed and the detail
	// was built from work data alone.
	PartialFailure bool `json:"partial_failure,omitempty"`
	// Err holds the failure message when Status is Failed.
	Err string `json:"error,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate a cached detail.
func (d Detail) Clone() Detail {
	c := d
	c.Subjects = cloneStrings(d.Subjects)
	c.PublishPlaces = cloneStrings(d.PublishPlaces)
	c.ISBNs = cloneStrings(d.ISBNs)
	c.Publishers = cloneStrings(d.Publishers)
	if d.PageCount != nil {
		n := *d.PageCount
		c.PageCount = &n
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
