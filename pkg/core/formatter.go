package core

import (
	"fmt"
	"strings"
)

const maxFieldLen = 100

// FormatDetail formats the populated fields of a detail record into an
// indented, human readable block. Long values are truncated.
func FormatDetail(d Detail) string {
	if d.Status != Loaded {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n  Details:")
	field := func(name, value string) {
		if value == "" {
			return
		}
		if len(value) > maxFieldLen {
			value = value[:maxFieldLen-3] + "..."
		}
		b.WriteString(fmt.Sprintf("\n    %s: %s", name, value))
	}

	field("description", d.Description)
	field("opening line", d.OpeningLine)
	field("subjects", strings.Join(d.Subjects, ", "))
	field("publish places", strings.Join(d.PublishPlaces, ", "))
	field("publishers", strings.Join(d.Publishers, ", "))
	field("isbn", strings.Join(d.ISBNs, ", "))
	if d.PageCount != nil {
		field("pages", fmt.Sprintf("%d", *d.PageCount))
	}
	if d.PartialFailure {
		field("note", "edition details unavailable")
	}

	return b.String()
}
