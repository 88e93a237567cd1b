package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rubiojr/bookexplorer/pkg/config"
	"github.com/rubiojr/bookexplorer/pkg/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, CoversURL: "https://covers.example.org", Timeout: 5 * time.Second}), srv
}

func TestSearchRequestShape(t *testing.T) {
	var gotQuery, gotPage, gotLimit, gotUA string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		gotPage = r.URL.Query().Get("page")
		gotLimit = r.URL.Query().Get("limit")
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, `{"numFound": 0, "docs": []}`)
	})

	page, err := client.Search(context.Background(), "  dune messiah ", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotQuery != "dune messiah" {
		t.Errorf("expected trimmed query, got %q", gotQuery)
	}
	if gotPage != "3" {
		t.Errorf("expected page 3, got %q", gotPage)
	}
	if gotLimit != "20" {
		t.Errorf("expected limit 20, got %q", gotLimit)
	}
	if !strings.HasPrefix(gotUA, "bookexplorer/") {
		t.Errorf("expected default user agent, got %q", gotUA)
	}
	if page.PageSize != config.PageSize || page.Number != 3 || page.Query != "dune messiah" {
		t.Errorf("unexpected page metadata: %+v", page)
	}
	if page.Records == nil || len(page.Records) != 0 {
		t.Errorf("expected empty non-nil records, got %v", page.Records)
	}
}

func TestSearchNormalizesRecords(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"numFound": 437,
			"docs": [
				{"key": "/works/OL893415W", "title": "Dune", "author_name": ["Frank Herbert"], "first_publish_year": 1965, "cover_i": 11481354},
				{"key": "/works/OL2W", "title": "", "first_publish_year": 0},
				{"key": "/works/OL3W", "title": "Nulls", "author_name": null, "first_publish_year": null, "cover_i": null},
				{"title": "No key"},
				{"key": "/works/OL4W", "title": "Old title"},
				{"key": "/works/OL4W", "title": "New title"},
				"not an object"
			]
		}`)
	})

	page, err := client.Search(context.Background(), "dune", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if page.TotalAvailable != 437 {
		t.Errorf("expected total 437, got %d", page.TotalAvailable)
	}
	if page.Fetched != 7 {
		t.Errorf("expected 7 fetched docs, got %d", page.Fetched)
	}
	if len(page.Records) != 4 {
		t.Fatalf("expected 4 records, got %d: %+v", len(page.Records), page.Records)
	}

	dune := page.Records[0]
	if dune.ID != "OL893415W" || dune.Title != "Dune" || dune.Year() != "1965" || dune.CoverID == nil {
		t.Errorf("unexpected first record: %+v", dune)
	}

	blank := page.Records[1]
	if blank.Title != core.UnknownTitle {
		t.Errorf("expected placeholder title, got %q", blank.Title)
	}
	if len(blank.Authors) != 1 || blank.Authors[0] != core.UnknownAuthor {
		t.Errorf("expected placeholder author, got %v", blank.Authors)
	}
	if blank.HasYear() {
		t.Errorf("year 0 must be absent")
	}

	nulls := page.Records[2]
	if nulls.HasYear() || nulls.CoverID != nil {
		t.Errorf("null fields must be absent: %+v", nulls)
	}

	dup := page.Records[3]
	if dup.ID != "OL4W" || dup.Title != "New title" {
		t.Errorf("duplicate key should keep last data in first slot, got %+v", dup)
	}
}

func TestSearchTruncatesToPageSize(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var docs []string
		for i := 0; i < 25; i++ {
			docs = append(docs, fmt.Sprintf(`{"key": "/works/OL%dW", "title": "Book %d"}`, i, i))
		}
		fmt.Fprintf(w, `{"num_found": 25, "docs": [%s]}`, strings.Join(docs, ","))
	})

	page, err := client.Search(context.Background(), "many", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != config.PageSize {
		t.Errorf("expected %d records, got %d", config.PageSize, len(page.Records))
	}
	if page.TotalAvailable != 25 {
		t.Errorf("expected num_found fallback, got %d", page.TotalAvailable)
	}
	if page.Fetched != config.PageSize {
		t.Errorf("fetched count should be capped at %d, got %d", config.PageSize, page.Fetched)
	}
}

func TestSearchFullPageWithDuplicateKey(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var docs []string
		for i := 0; i < config.PageSize-1; i++ {
			docs = append(docs, fmt.Sprintf(`{"key": "/works/OL%dW", "title": "Book %d"}`, i, i))
		}
		docs = append(docs, `{"key": "/works/OL0W", "title": "Book 0 again"}`)
		fmt.Fprintf(w, `{"numFound": 437, "docs": [%s]}`, strings.Join(docs, ","))
	})

	page, err := client.Search(context.Background(), "dune", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != config.PageSize-1 {
		t.Errorf("expected %d records, got %d", config.PageSize-1, len(page.Records))
	}
	if page.Fetched != config.PageSize {
		t.Errorf("expected %d fetched docs, got %d", config.PageSize, page.Fetched)
	}
}

func TestSearchMissingDocsIsEmptyPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"numFound": 0}`)
	})

	page, err := client.Search(context.Background(), "nothing", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Records) != 0 {
		t.Errorf("expected no records, got %d", len(page.Records))
	}
}

func TestSearchInvalidQuery(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	for _, tc := range []struct {
		query string
		page  int
	}{{"", 1}, {"   \t", 1}, {"dune", 0}} {
		_, err := client.Search(context.Background(), tc.query, tc.page)
		if !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("Search(%q, %d): expected ErrInvalidQuery, got %v", tc.query, tc.page, err)
		}
	}
	if calls.Load() != 0 {
		t.Errorf("invalid queries must not reach the network, got %d calls", calls.Load())
	}
}

func TestSearchErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: ErrRemote,
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<html>maintenance</html>")
			},
			want: ErrMalformed,
		},
		{
			name: "docs not an array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"numFound": 1, "docs": {"key": "x"}}`)
			},
			want: ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.handler)
			_, err := client.Search(context.Background(), "dune", 1)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSearchRemoteErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Search(context.Background(), "dune", 1)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected *RemoteError, got %T %v", err, err)
	}
	if remote.StatusCode != http.StatusServiceUnavailable || remote.Endpoint != "search" {
		t.Errorf("unexpected remote error %+v", remote)
	}
}

func TestSearchNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: url, Timeout: time.Second})
	_, err := client.Search(context.Background(), "dune", 1)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestWorkAndFirstEdition(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/works/OL893415W.json":
			fmt.Fprint(w, `{
				"key": "/works/OL893415W",
				"title": "Dune",
				"description": {"type": "/type/text", "value": "Spice."},
				"subjects": ["Science fiction", 42, "Dune (Imaginary place)"],
				"first_sentence": "A beginning is the time for taking the most delicate care."
			}`)
		case "/works/OL893415W/editions.json":
			if r.URL.Query().Get("limit") != "1" {
				t.Errorf("expected limit=1, got %q", r.URL.RawQuery)
			}
			fmt.Fprint(w, `{"entries": [{
				"key": "/books/OL1M",
				"description": "Edition text",
				"isbn_13": ["9780441013593"],
				"isbn_10": ["0441013597"],
				"number_of_pages": "604",
				"publishers": ["Ace"],
				"publish_places": ["New York"]
			}]}`)
		case "/works/OL1W/editions.json":
			fmt.Fprint(w, `{"entries": []}`)
		default:
			http.NotFound(w, r)
		}
	})

	work, err := client.Work(context.Background(), "/works/OL893415W")
	if err != nil {
		t.Fatalf("Work: %v", err)
	}
	if work.Description.String() != "Spice." {
		t.Errorf("expected unwrapped description, got %q", work.Description)
	}
	if len(work.Subjects) != 2 {
		t.Errorf("expected non-string subjects skipped, got %v", work.Subjects)
	}
	if !strings.HasPrefix(work.FirstSentence.String(), "A beginning") {
		t.Errorf("unexpected first sentence %q", work.FirstSentence)
	}

	ed, err := client.FirstEdition(context.Background(), "OL893415W")
	if err != nil {
		t.Fatalf("FirstEdition: %v", err)
	}
	if ed.NumberOfPages != 604 {
		t.Errorf("expected 604 pages from string value, got %d", ed.NumberOfPages)
	}
	if got := strings.Join(ed.ISBNs(), ","); got != "9780441013593,0441013597" {
		t.Errorf("unexpected isbns %s", got)
	}

	if _, err := client.FirstEdition(context.Background(), "OL1W"); !errors.Is(err, ErrNoEditions) {
		t.Errorf("expected ErrNoEditions, got %v", err)
	}
	if _, err := client.Work(context.Background(), "OL404W"); !errors.Is(err, ErrRemote) {
		t.Errorf("expected ErrRemote for missing work, got %v", err)
	}
	if _, err := client.Work(context.Background(), ""); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery for empty id, got %v", err)
	}
}

func TestCoverURL(t *testing.T) {
	client := NewClient(Options{CoversURL: "https://covers.example.org/", PlaceholderCoverURL: "https://example.org/none.png"})
	id := 11481354

	if got := client.CoverURL(&id, ""); got != "https://covers.example.org/b/id/11481354-M.jpg" {
		t.Errorf("unexpected default size url %s", got)
	}
	if got := client.CoverURL(&id, "l"); got != "https://covers.example.org/b/id/11481354-L.jpg" {
		t.Errorf("unexpected large url %s", got)
	}
	if got := client.CoverURL(&id, "XL"); !strings.HasSuffix(got, "-M.jpg") {
		t.Errorf("unknown size should fall back to M, got %s", got)
	}
	if got := client.CoverURL(nil, "M"); got != "https://example.org/none.png" {
		t.Errorf("expected placeholder, got %s", got)
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"numFound": 0, "docs": []}`)
	})
	client.Reconfigure(Options{BaseURL: client.opts.BaseURL, RequestsPerSecond: 0.001})

	if _, err := client.Search(context.Background(), "first", 1); err != nil {
		t.Fatalf("first request should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Search(ctx, "second", 1)
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork when the limiter wait is cancelled, got %v", err)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("%w: query is empty", ErrInvalidQuery), "invalid_query"},
		{fmt.Errorf("%w: dial tcp", ErrNetwork), "network"},
		{fmt.Errorf("search: %w", &RemoteError{Endpoint: "search", StatusCode: 503}), "remote"},
		{fmt.Errorf("%w: search: bad json", ErrMalformed), "malformed"},
		{errors.New("boom"), "unknown"},
	}
	for _, tt := range tests {
		if got := Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
