package article

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewRecord_Sentinels verifies absent fields collapse to their sentinels
func TestNewRecord_Sentinels(t *testing.T) {
	rec := NewRecord(RecordData{SourceURL: "https://apnews.com/article/x"})

	assert.Equal(t, AuthorNotFound, rec.Author())
	assert.Equal(t, DateNotFound, rec.PublishedAt())
	assert.False(t, rec.HasAuthor())
	assert.Empty(t, rec.Authors())
	assert.NotEqual(t, uuid.Nil, rec.ID())
	assert.False(t, rec.ScrapedAt().IsZero())
	assert.Equal(t, StateAssembled, rec.State())
}

// TestNewRecord_ImagesDistinctAndSorted verifies the image set invariant
func TestNewRecord_ImagesDistinctAndSorted(t *testing.T) {
	rec := NewRecord(RecordData{
		SourceURL: "https://apnews.com/article/x",
		ImageURLs: []string{"b", "a", "b", "", "c"},
	})

	assert.Equal(t, []string{"a", "b", "c"}, rec.ImageURLs())
}

// TestRecord_ImageURLsIsACopy verifies callers cannot mutate a record
func TestRecord_ImageURLsIsACopy(t *testing.T) {
	rec := NewRecord(RecordData{SourceURL: "u", ImageURLs: []string{"a"}})

	urls := rec.ImageURLs()
	urls[0] = "changed"

	assert.Equal(t, []string{"a"}, rec.ImageURLs())
}

// TestNewRecord_EmptyFoundFieldKept verifies an explicitly found empty value
// is not replaced by a sentinel
func TestNewRecord_EmptyFoundFieldKept(t *testing.T) {
	rec := NewRecord(RecordData{SourceURL: "u", PublishedAt: Found("")})

	assert.Equal(t, "", rec.PublishedAt())
}

func TestParseAuthors(t *testing.T) {
	tests := []struct {
		byline string
		want   []string
	}{
		{"By JANE DOE", []string{"JANE DOE"}},
		{"By JANE DOE and JOHN ROE", []string{"JANE DOE", "JOHN ROE"}},
		{"By A, B and C", []string{"A", "B", "C"}},
		{"By A, B, and C", []string{"A", "B", "C"}},
		{"by   lower case", []string{"lower case"}},
		{"Associated Press", []string{"Associated Press"}},
		{"By ", []string{}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.byline, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAuthors(tt.byline))
		})
	}
}

func TestRecord_PublishedTime(t *testing.T) {
	tests := []struct {
		name string
		raw  Field
		want time.Time
		ok   bool
	}{
		{
			name: "epoch millis",
			raw:  Found("1700000000000"),
			want: time.UnixMilli(1700000000000).UTC(),
			ok:   true,
		},
		{
			name: "rfc3339",
			raw:  Found("2024-03-01T12:00:00Z"),
			want: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "not found",
			raw:  NotFound(),
		},
		{
			name: "garbage",
			raw:  Found("two hours ago"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord(RecordData{SourceURL: "u", PublishedAt: tt.raw})

			got, ok := rec.PublishedTime()

			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}

// TestRecord_JSON verifies the stored form and that decoding restores it
func TestRecord_JSON(t *testing.T) {
	id := uuid.New()
	scraped := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecord(RecordData{
		ID:          id,
		SourceURL:   "https://apnews.com/article/x",
		Headline:    "Headline",
		Author:      Found("By JANE DOE"),
		PublishedAt: NotFound(),
		ScrapedAt:   scraped,
		State:       StateFailed,
	})

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, DateNotFound, raw["published_at"])
	assert.Equal(t, []any{}, raw["image_urls"], "image_urls is never null")
	assert.Equal(t, "failed", raw["state"])

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, id, back.ID())
	assert.Equal(t, "By JANE DOE", back.Author())
	assert.Equal(t, DateNotFound, back.PublishedAt())
	assert.True(t, back.Failed())
	assert.True(t, scraped.Equal(back.ScrapedAt()))
}

func TestRecord_UnmarshalRequiresSourceURL(t *testing.T) {
	var rec Record
	err := json.Unmarshal([]byte(`{"headline":"x"}`), &rec)

	assert.Error(t, err)
}
