package sorter

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"github.com/rubiojr/bookexplorer/pkg/core"
)

func rec(id, title string, year int) core.Record {
	r := core.Record{ID: id, Title: title, Authors: []string{"A"}}
	if year != 0 {
		y := year
		r.FirstPublishYear = &y
	}
	return r
}

func ids(records []core.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func sample() []core.Record {
	return []core.Record{
		rec("1", "dune", 1965),
		rec("2", "Children of Dune", 1976),
		rec("3", "Appendix", 0),
		rec("4", "Dune", 1984),
		rec("5", "Zebra", 1965),
		rec("6", "apple", 0),
		rec("7", "Dune", 1984),
	}
}

func TestSortModes(t *testing.T) {
	tests := []struct {
		mode Mode
		want []string
	}{
		{Relevance, []string{"1", "2", "3", "4", "5", "6", "7"}},
		// 1984 (Dune, Dune) > 1976 > 1965 (dune, Zebra) > unknown (Appendix, apple)
		{Newest, []string{"4", "7", "2", "1", "5", "3", "6"}},
		{Oldest, []string{"1", "5", "2", "4", "7", "3", "6"}},
		// Appendix < apple < Children of Dune < Dune(1984) x2 < dune(1965) < Zebra
		{Title, []string{"3", "6", "2", "4", "7", "1", "5"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			got := ids(Sort(sample(), tt.mode))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Sort(%s) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	in := sample()
	before := ids(in)

	for _, m := range Modes() {
		out := Sort(in, m)
		if len(out) > 0 && &out[0] == &in[0] {
			t.Fatalf("mode %s returned the input backing array", m)
		}
	}

	if !reflect.DeepEqual(ids(in), before) {
		t.Fatalf("input was reordered: %v", ids(in))
	}
}

func TestSortIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	titles := []string{"Dune", "dune", "Emma", "emma", "Ulysses", "a", "B"}

	for round := 0; round < 50; round++ {
		var records []core.Record
		for i := 0; i < 30; i++ {
			year := 0
			if rng.Intn(4) != 0 {
				year = 1900 + rng.Intn(5)
			}
			records = append(records, rec(fmt.Sprint(i), titles[rng.Intn(len(titles))], year))
		}

		for _, m := range Modes() {
			once := Sort(records, m)
			twice := Sort(once, m)
			if !reflect.DeepEqual(ids(once), ids(twice)) {
				t.Fatalf("round %d mode %s not idempotent:\n%v\n%v", round, m, ids(once), ids(twice))
			}
			if len(once) != len(records) {
				t.Fatalf("mode %s changed record count", m)
			}
		}
	}
}

func TestSortStableForEqualKeys(t *testing.T) {
	in := []core.Record{
		rec("b", "Same", 2000),
		rec("a", "same", 2000),
		rec("c", "SAME", 2000),
	}
	for _, m := range Modes() {
		got := ids(Sort(in, m))
		if !reflect.DeepEqual(got, []string{"b", "a", "c"}) {
			t.Errorf("mode %s should keep input order for equal keys, got %v", m, got)
		}
	}
}

func TestSortEmpty(t *testing.T) {
	out := Sort(nil, Title)
	if out == nil || len(out) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", out)
	}
}

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"":          Relevance,
		"relevance": Relevance,
		"NEW":       Newest,
		"newest":    Newest,
		"old":       Oldest,
		" oldest ":  Oldest,
		"title":     Title,
	}
	for in, want := range tests {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMode("popularity"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if Title.Label() != "Title A-Z" {
		t.Errorf("unexpected label %q", Title.Label())
	}
}
