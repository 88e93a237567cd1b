package cmd

import (
	"fmt"
	"html"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rubiojr/bookexplorer/pkg/core"
	"github.com/rubiojr/bookexplorer/pkg/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	bookTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))

	metaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("32")).
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("32")).
			Padding(0, 1)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	urlStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)

var titleCaser = cases.Title(language.English)

// coverResolver is satisfied by the catalog client.
type coverResolver interface {
	CoverURL(coverID *int, size string) string
}

// formatNumber formats a number with K/M suffixes for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

var errorHints = map[string]string{
	"network":   "Check your connection, then retry.",
	"remote":    "The catalog is having trouble, retry in a moment.",
	"malformed": "The catalog sent an unexpected response, retry in a moment.",
}

// formatView renders a result view as a header followed by one card per
// record. details may be nil.
func formatView(v session.View, details map[string]core.Detail, covers coverResolver) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Results for %q", v.Query)))
	b.WriteString("\n\n")

	switch {
	case v.Error != "":
		b.WriteString(errorStyle.Render("Search failed: " + v.Error))
		b.WriteString("\n")
		if hint, ok := errorHints[v.ErrorKind]; ok {
			b.WriteString(noDataStyle.Render(hint))
			b.WriteString("\n")
		}
		if len(v.Records) == 0 {
			return b.String()
		}
		b.WriteString("\n")
	case v.Empty:
		b.WriteString(noDataStyle.Render(fmt.Sprintf("No books found for %q", v.Query)))
		b.WriteString("\n")
		return b.String()
	}

	for i, r := range v.Records {
		var d *core.Detail
		if det, ok := details[r.ID]; ok {
			d = &det
		}
		b.WriteString(formatCard(r, i+1, d, covers))
		b.WriteString("\n")
	}

	summary := fmt.Sprintf("Showing %d of %s books · page %d · sorted by %s",
		len(v.Records), formatNumber(v.Total), v.Page, v.Sort.Label())
	if v.HasMore {
		summary += " · more available"
	}
	b.WriteString(summaryStyle.Render(summary))
	b.WriteString("\n")
	return b.String()
}

// formatCard renders a single record.
func formatCard(r core.Record, index int, d *core.Detail, covers coverResolver) string {
	var content strings.Builder

	content.WriteString(bookTitleStyle.Render(fmt.Sprintf("#%d %s", index, r.Title)))
	content.WriteString("\n")
	content.WriteString(formatAuthors(r))
	content.WriteString("\n")

	year := "year unknown"
	if r.HasYear() {
		year = "first published " + r.Year()
	}
	content.WriteString(metaStyle.Render(fmt.Sprintf("%s · %s", r.ID, year)))

	if covers != nil {
		content.WriteString("\n" + urlStyle.Render(covers.CoverURL(r.CoverID, "M")))
	}

	if d != nil {
		content.WriteString(formatDetail(*d))
	}

	return cardStyle.Render(content.String())
}

func formatAuthors(r core.Record) string {
	switch n := len(r.Authors); {
	case n <= 1:
		return r.PrimaryAuthor()
	case n == 2:
		return r.Authors[0] + " and " + r.Authors[1]
	default:
		return fmt.Sprintf("%s and %d others", r.PrimaryAuthor(), n-1)
	}
}

// formatPlain renders a view without styling, one record per block, for
// piping into other tools.
func formatPlain(v session.View, details map[string]core.Detail) string {
	var b strings.Builder
	if v.Error != "" {
		b.WriteString("Search failed: " + v.Error + "\n")
	}
	if v.Empty {
		fmt.Fprintf(&b, "No books found for %q\n", v.Query)
	}
	for _, r := range v.Records {
		b.WriteString(r.PrettyText())
		if d, ok := details[r.ID]; ok {
			b.WriteString(core.FormatDetail(decodeText(d)))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// decodeText turns the HTML-escaped detail text back into plain text for the
// terminal.
func decodeText(d core.Detail) core.Detail {
	d.Description = html.UnescapeString(d.Description)
	d.OpeningLine = html.UnescapeString(d.OpeningLine)
	return d
}

// formatDetail renders the enrichment block of a card.
func formatDetail(d core.Detail) string {
	switch d.Status {
	case core.Loaded:
		subjects := make([]string, len(d.Subjects))
		for i, s := range d.Subjects {
			subjects[i] = titleCaser.String(s)
		}
		d.Subjects = subjects
		return core.FormatDetail(decodeText(d))
	case core.Failed:
		return "\n" + errorStyle.Render("Details unavailable: "+d.Err)
	case core.Loading:
		return "\n" + noDataStyle.Render("Loading details...")
	}
	return ""
}
