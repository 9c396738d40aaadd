// Package report renders scraped article records for people and programs.
package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rotisserie/eris"

	"github.com/pevans/newsgrab/article"
)

// Format selects a renderer.
type Format string

const (
	FormatHTML  Format = "html"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat parses a format name, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatHTML, FormatTable, FormatJSON:
		return f, nil
	}
	return "", eris.Errorf("report: unknown format %q (want html, table or json)", s)
}

// Render writes recs to w in format f.
func Render(w io.Writer, f Format, recs []article.Record) error {
	switch f {
	case FormatHTML:
		return HTML(w, recs)
	case FormatTable:
		return Table(w, recs)
	case FormatJSON:
		return JSON(w, recs)
	}
	return eris.Errorf("report: unknown format %q", f)
}

var htmlReport = template.Must(template.New("report").Parse(
	`<html><body><table border="1">` +
		`<tr><th>Headline</th><th>Author(s)</th><th>Date</th><th>Link</th><th>Images</th></tr>` +
		`{{range .}}<tr>` +
		`<td><a href="{{.SourceURL}}">{{.Headline}}</a></td>` +
		`<td>{{.Author}}</td>` +
		`<td>{{.PublishedAt}}</td>` +
		`<td><a href="{{.SourceURL}}">{{.SourceURL}}</a></td>` +
		`<td>{{range .ImageURLs}}<a href="{{.}}">{{.}}</a><br>{{end}}</td>` +
		`</tr>{{end}}` +
		`</table></body></html>`,
))

// HTML writes a single table with one row per record: the headline linked
// to the article, the author, the raw date, the article link, and every
// image as a link on its own line.
func HTML(w io.Writer, recs []article.Record) error {
	if err := htmlReport.Execute(w, recs); err != nil {
		return eris.Wrap(err, "report: render html")
	}
	return nil
}

type jsonReport struct {
	Articles []article.Record `json:"articles"`
	Total    int              `json:"total"`
}

// JSON writes {"articles": [...], "total": n}.
func JSON(w io.Writer, recs []article.Record) error {
	if recs == nil {
		recs = []article.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonReport{Articles: recs, Total: len(recs)}); err != nil {
		return eris.Wrap(err, "report: render json")
	}
	return nil
}

// Column limits for the text table, in terminal cells.
const (
	headlineWidth = 48
	authorWidth   = 28
	dateWidth     = 16
)

// Table writes an aligned plain-text table. Wide runes are measured by
// display width, and long cells are cut with an ellipsis.
func Table(w io.Writer, recs []article.Record) error {
	header := []string{"HEADLINE", "AUTHOR", "DATE", "IMAGES", "URL"}
	rows := [][]string{header}
	for _, rec := range recs {
		headline := rec.Headline()
		if rec.Failed() {
			headline = "(failed) " + headline
		}
		rows = append(rows, []string{
			runewidth.Truncate(headline, headlineWidth, "…"),
			runewidth.Truncate(rec.Author(), authorWidth, "…"),
			runewidth.Truncate(rec.PublishedAt(), dateWidth, "…"),
			strconv.Itoa(len(rec.ImageURLs())),
			rec.SourceURL(),
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "%d article(s)\n", len(recs))

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return eris.Wrap(err, "report: write table")
	}
	return nil
}
