// Package article drives a single news article page to completion and
// assembles what it finds into an immutable Record.
package article

import (
	"encoding/json"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Sentinels recorded when a field could not be found on the page.
const (
	AuthorNotFound = "[AUTHOR NOT FOUND]"
	DateNotFound   = "[DATE NOT FOUND]"
)

// State is a step of the per-article assembly state machine.
type State string

const (
	StateCreated         State = "created"
	StatePageLoading     State = "page_loading"
	StatePageStable      State = "page_stable"
	StateFieldsExtracted State = "fields_extracted"
	StateImagesCollected State = "images_collected"
	StateAssembled       State = "assembled"
	StateFailed          State = "failed"
)

// Field is the outcome of one best-effort lookup: either a found value or
// nothing. It collapses to a sentinel only when a Record is assembled.
type Field struct {
	value string
	found bool
}

// Found wraps an extracted value.
func Found(value string) Field {
	return Field{value: value, found: true}
}

// NotFound is the absent outcome.
func NotFound() Field {
	return Field{}
}

// Value returns the extracted value and whether there was one.
func (f Field) Value() (string, bool) {
	return f.value, f.found
}

// Or returns the value if found, otherwise sentinel.
func (f Field) Or(sentinel string) string {
	if f.found {
		return f.value
	}
	return sentinel
}

// Record is the scraped form of one article. It is built once and never
// mutated; accessors return copies.
type Record struct {
	id          uuid.UUID
	sourceURL   string
	headline    string
	author      string
	publishedAt string
	imageURLs   []string
	scrapedAt   time.Time
	state       State
}

// RecordData carries the values a Record is built from.
type RecordData struct {
	ID          uuid.UUID
	SourceURL   string
	Headline    string
	Author      Field
	PublishedAt Field
	ImageURLs   []string
	ScrapedAt   time.Time
	State       State
}

// NewRecord builds a Record. Missing fields become their sentinels, image
// URLs are de-duplicated, and a zero ID or timestamp is filled in.
func NewRecord(d RecordData) Record {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.ScrapedAt.IsZero() {
		d.ScrapedAt = time.Now()
	}
	if d.State == "" {
		d.State = StateAssembled
	}

	return Record{
		id:          d.ID,
		sourceURL:   d.SourceURL,
		headline:    d.Headline,
		author:      d.Author.Or(AuthorNotFound),
		publishedAt: d.PublishedAt.Or(DateNotFound),
		imageURLs:   newImageSet(d.ImageURLs...).sorted(),
		scrapedAt:   d.ScrapedAt,
		state:       d.State,
	}
}

func (r Record) ID() uuid.UUID        { return r.id }
func (r Record) SourceURL() string    { return r.sourceURL }
func (r Record) Headline() string     { return r.headline }
func (r Record) Author() string       { return r.author }
func (r Record) PublishedAt() string  { return r.publishedAt }
func (r Record) ScrapedAt() time.Time { return r.scrapedAt }
func (r Record) State() State         { return r.state }

// ImageURLs returns the distinct press photo URLs in lexical order.
func (r Record) ImageURLs() []string {
	return slices.Clone(r.imageURLs)
}

// Failed reports whether the page could not be driven at all.
func (r Record) Failed() bool {
	return r.state == StateFailed
}

// HasAuthor reports whether a byline was found.
func (r Record) HasAuthor() bool {
	return r.author != AuthorNotFound
}

// Authors splits the byline into individual names.
func (r Record) Authors() []string {
	if !r.HasAuthor() {
		return []string{}
	}
	return ParseAuthors(r.author)
}

// PublishedTime parses the raw timestamp. The site emits epoch milliseconds
// on some pages and formatted dates on others; anything unparsable reports
// false.
func (r Record) PublishedTime() (time.Time, bool) {
	raw := strings.TrimSpace(r.publishedAt)
	if raw == "" || raw == DateNotFound {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && len(raw) >= 12 {
		return time.UnixMilli(ms).UTC(), true
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseAuthors splits a byline into names on ", " or " and ", after dropping
// a leading "By".
func ParseAuthors(byline string) []string {
	text := strings.Join(strings.Fields(byline), " ")
	switch {
	case strings.EqualFold(text, "by"):
		text = ""
	case len(text) >= 3 && strings.EqualFold(text[:3], "by "):
		text = text[3:]
	}
	if text == "" {
		return []string{}
	}

	var parts []string
	switch {
	case strings.Contains(text, ", "):
		parts = strings.Split(strings.ReplaceAll(text, ", and ", ", "), ", ")
	case strings.Contains(text, " and "):
		parts = strings.Split(text, " and ")
	default:
		parts = []string{text}
	}

	authors := []string{}
	for _, p := range parts {
		for q := range strings.SplitSeq(p, " and ") {
			if q = strings.TrimSpace(q); q != "" {
				authors = append(authors, q)
			}
		}
	}
	return authors
}

// recordJSON is the stored form of a Record.
type recordJSON struct {
	ID          uuid.UUID `json:"id"`
	SourceURL   string    `json:"source_url"`
	Headline    string    `json:"headline"`
	Author      string    `json:"author"`
	PublishedAt string    `json:"published_at"`
	ImageURLs   []string  `json:"image_urls"`
	ScrapedAt   time.Time `json:"scraped_at"`
	State       State     `json:"state"`
}

// MarshalJSON encodes the record with snake_case keys.
func (r Record) MarshalJSON() ([]byte, error) {
	images := r.imageURLs
	if images == nil {
		images = []string{}
	}
	return json.Marshal(recordJSON{
		ID:          r.id,
		SourceURL:   r.sourceURL,
		Headline:    r.headline,
		Author:      r.author,
		PublishedAt: r.publishedAt,
		ImageURLs:   images,
		ScrapedAt:   r.scrapedAt,
		State:       r.state,
	})
}

// UnmarshalJSON decodes a stored record. Sentinel strings are kept as they
// were written.
func (r *Record) UnmarshalJSON(data []byte) error {
	var j recordJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return eris.Wrap(err, "article: decode record")
	}
	if j.SourceURL == "" {
		return eris.New("article: decode record: source_url is empty")
	}

	*r = NewRecord(RecordData{
		ID:          j.ID,
		SourceURL:   j.SourceURL,
		Headline:    j.Headline,
		Author:      fieldOf(j.Author),
		PublishedAt: fieldOf(j.PublishedAt),
		ImageURLs:   j.ImageURLs,
		ScrapedAt:   j.ScrapedAt,
		State:       j.State,
	})
	return nil
}

func fieldOf(s string) Field {
	if s == "" {
		return NotFound()
	}
	return Found(s)
}
