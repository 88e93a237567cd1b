package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewRecordNormalization(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		title       string
		authors     []string
		year        int
		cover       int
		wantID      string
		wantTitle   string
		wantAuthors []string
		wantYear    *int
		wantCover   *int
	}{
		{
			name:        "complete record",
			key:         "/works/OL893415W",
			title:       "Dune",
			authors:     []string{"Frank Herbert"},
			year:        1965,
			cover:       11481354,
			wantID:      "OL893415W",
			wantTitle:   "Dune",
			wantAuthors: []string{"Frank Herbert"},
			wantYear:    intPtr(1965),
			wantCover:   intPtr(11481354),
		},
		{
			name:        "missing everything",
			key:         "OL1W",
			wantID:      "OL1W",
			wantTitle:   UnknownTitle,
			wantAuthors: []string{UnknownAuthor},
		},
		{
			name:        "blank author entries dropped",
			key:         "/works/OL2W",
			title:       "  Spaced  ",
			authors:     []string{" ", ""},
			cover:       -1,
			wantID:      "OL2W",
			wantTitle:   "Spaced",
			wantAuthors: []string{UnknownAuthor},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecord(tt.key, tt.title, tt.authors, tt.year, tt.cover)
			if r.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", r.ID, tt.wantID)
			}
			if r.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", r.Title, tt.wantTitle)
			}
			if strings.Join(r.Authors, "|") != strings.Join(tt.wantAuthors, "|") {
				t.Errorf("Authors = %v, want %v", r.Authors, tt.wantAuthors)
			}
			if (r.FirstPublishYear == nil) != (tt.wantYear == nil) ||
				(r.FirstPublishYear != nil && *r.FirstPublishYear != *tt.wantYear) {
				t.Errorf("FirstPublishYear = %v, want %v", r.FirstPublishYear, tt.wantYear)
			}
			if (r.CoverID == nil) != (tt.wantCover == nil) ||
				(r.CoverID != nil && *r.CoverID != *tt.wantCover) {
				t.Errorf("CoverID = %v, want %v", r.CoverID, tt.wantCover)
			}
		})
	}
}

func TestRecordYearAbsentIsNotZero(t *testing.T) {
	r := NewRecord("/works/OL3W", "Untimed", nil, 0, 0)
	if r.HasYear() {
		t.Fatal("zero year must be treated as absent")
	}
	if r.Year() != "" {
		t.Fatalf("expected empty year text, got %q", r.Year())
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "first_publish_year") {
		t.Fatalf("absent year should be omitted from JSON: %s", data)
	}
}

func TestRecordPrettyText(t *testing.T) {
	r := NewRecord("/works/OL893415W", "Dune", []string{"Frank Herbert", "Someone Else"}, 1965, 0)
	out := r.PrettyText()
	for _, s := range []string{"Dune", "by Frank Herbert, Someone Else", "First published: 1965", "ID: OL893415W"} {
		if !strings.Contains(out, s) {
			t.Errorf("expected %q in %q", s, out)
		}
	}
	if r.PrimaryAuthor() != "Frank Herbert" {
		t.Errorf("unexpected primary author %q", r.PrimaryAuthor())
	}
}

func TestDetailCloneIsDeep(t *testing.T) {
	d := Detail{Status: Loaded, Subjects: []string{"a"}, PageCount: intPtr(10)}
	c := d.Clone()
	c.Subjects[0] = "b"
	*c.PageCount = 20
	if d.Subjects[0] != "a" || *d.PageCount != 10 {
		t.Fatal("clone shares memory with the original")
	}
}

func TestDetailStatusJSON(t *testing.T) {
	data, err := json.Marshal(Detail{RecordID: "OL1W", Status: Failed, Err: "boom"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"status":"failed"`) {
		t.Fatalf("status should marshal as text: %s", data)
	}
}
