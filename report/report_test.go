package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/newsgrab/article"
)

func sampleRecords() []article.Record {
	return []article.Record{
		article.NewRecord(article.RecordData{
			SourceURL:   "https://apnews.com/article/storm",
			Headline:    "Storm <hits> coast",
			Author:      article.Found("By JANE DOE"),
			PublishedAt: article.Found("1700000000000"),
			ImageURLs: []string{
				"https://storage.googleapis.com/b.jpeg",
				"https://storage.googleapis.com/a.jpeg",
			},
		}),
		article.NewRecord(article.RecordData{
			SourceURL: "https://apnews.com/article/bare",
			Headline:  "東京で地震",
		}),
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"html", "HTML", " table ", "json"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}

	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

// TestHTML_Layout verifies one well-formed row per record, in the column
// order of the report
func TestHTML_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, sampleRecords()))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	var headers []string
	doc.Find("th").Each(func(_ int, s *goquery.Selection) {
		headers = append(headers, s.Text())
	})
	assert.Equal(t, []string{"Headline", "Author(s)", "Date", "Link", "Images"}, headers)

	rows := doc.Find("tr").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Find("td").Length() > 0
	})
	require.Equal(t, 2, rows.Length())

	cells := rows.First().Find("td")
	require.Equal(t, 5, cells.Length())
	assert.Equal(t, "Storm <hits> coast", cells.Eq(0).Text(), "headline is escaped, not parsed")
	href, _ := cells.Eq(0).Find("a").Attr("href")
	assert.Equal(t, "https://apnews.com/article/storm", href)
	assert.Equal(t, "By JANE DOE", cells.Eq(1).Text())
	assert.Equal(t, "1700000000000", cells.Eq(2).Text())
	assert.Equal(t, 2, cells.Eq(4).Find("a").Length())
	assert.Equal(t, 2, cells.Eq(4).Find("br").Length())

	bare := rows.Eq(1).Find("td")
	assert.Equal(t, article.AuthorNotFound, bare.Eq(1).Text())
	assert.Equal(t, article.DateNotFound, bare.Eq(2).Text())
	assert.Equal(t, 0, bare.Eq(4).Find("a").Length())
}

func TestHTML_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, nil))

	assert.Contains(t, buf.String(), "<th>Headline</th>")
	assert.True(t, strings.HasSuffix(buf.String(), "</table></body></html>"))
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleRecords()))

	var got struct {
		Articles []map[string]any `json:"articles"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 2, got.Total)
	require.Len(t, got.Articles, 2)
	assert.Equal(t, "https://apnews.com/article/storm", got.Articles[0]["source_url"])
}

func TestJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, nil))

	assert.JSONEq(t, `{"articles": [], "total": 0}`, buf.String())
}

// TestTable_AlignsWideRunes verifies columns line up by display width
func TestTable_AlignsWideRunes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, sampleRecords()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "HEADLINE"))
	assert.Equal(t, "2 article(s)", lines[3])

	// The AUTHOR column starts at the same display offset on every row
	col := func(line, value string) int {
		return runewidth.StringWidth(line[:strings.Index(line, value)])
	}
	assert.Equal(t, col(lines[0], "AUTHOR"), col(lines[1], "By JANE DOE"))
	assert.Equal(t, col(lines[0], "AUTHOR"), col(lines[2], article.AuthorNotFound))
}

func TestTable_TruncatesLongCells(t *testing.T) {
	rec := article.NewRecord(article.RecordData{
		SourceURL: "https://apnews.com/article/long",
		Headline:  strings.Repeat("word ", 40),
	})

	var buf bytes.Buffer
	require.NoError(t, Table(&buf, []article.Record{rec}))

	assert.Contains(t, buf.String(), "…")
	assert.Contains(t, buf.String(), "https://apnews.com/article/long")
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, nil))
	assert.Contains(t, buf.String(), `"total": 0`)

	assert.Error(t, Render(&buf, Format("xml"), nil))
}
