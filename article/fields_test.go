package article

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/pevans/newsgrab/browser/browsertest"
)

func TestHeadline(t *testing.T) {
	p, _, _ := newTestPage(t, browsertest.Page{Title: "  Storm hits coast \n"})

	got, ok := p.Headline(context.Background()).Value()

	assert.True(t, ok)
	assert.Equal(t, "Storm hits coast", got)
}

// TestHeadline_EmptyTitleIsValid verifies an empty title is kept as-is
func TestHeadline_EmptyTitleIsValid(t *testing.T) {
	p, _, _ := newTestPage(t, browsertest.Page{})

	got, ok := p.Headline(context.Background()).Value()

	assert.True(t, ok)
	assert.Equal(t, "", got)
}

func TestHeadline_TitleError(t *testing.T) {
	p, _, _ := newTestPage(t, browsertest.Page{TitleErr: eris.New("no title")})

	_, ok := p.Headline(context.Background()).Value()

	assert.False(t, ok)
	assert.NoError(t, p.Lost())
}

func TestAuthor(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  string
		found bool
	}{
		{
			name:  "byline present",
			body:  `<div class="Page-byline"><span>By   JANE DOE</span></div>`,
			want:  "By JANE DOE",
			found: true,
		},
		{
			name: "no byline",
			body: `<div class="Page-content"></div>`,
		},
		{
			name: "empty byline",
			body: `<div class="Page-byline">  </div>`,
		},
		{
			name: "stale byline",
			body: `<div class="Page-byline" data-stale>By JANE DOE</div>`,
		},
		{
			name:  "first match wins",
			body:  `<div class="byline">By A</div><div class="byline">By B</div>`,
			want:  "By A",
			found: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, _ := newTestPage(t, browsertest.Page{States: []string{html(tt.body)}})

			f := p.Author(context.Background())

			got, ok := f.Value()
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, p.Lost())
		})
	}
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		want  string
		found bool
	}{
		{
			name:  "epoch millis",
			body:  `<span data-key="timestamp" data-source="1700000000000">2 hours ago</span>`,
			want:  "1700000000000",
			found: true,
		},
		{
			name: "missing element",
			body: `<span data-key="byline">x</span>`,
		},
		{
			name: "missing attribute",
			body: `<span data-key="timestamp">2 hours ago</span>`,
		},
		{
			name: "empty attribute",
			body: `<span data-key="timestamp" data-source=" "></span>`,
		},
		{
			name: "stale element",
			body: `<span data-key="timestamp" data-source="1700000000000" data-stale></span>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _, _ := newTestPage(t, browsertest.Page{States: []string{html(tt.body)}})

			got, ok := p.Timestamp(context.Background()).Value()

			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestFields_OverlayDismissedBeforeLookup verifies a field under the overlay
// is still read
func TestFields_OverlayDismissedBeforeLookup(t *testing.T) {
	p, session, _ := newTestPage(t, browsertest.Page{States: []string{
		html(overlay, `<div class="Page-byline">By JANE DOE</div>`),
	}})

	got := p.Author(context.Background()).Or(AuthorNotFound)

	assert.Equal(t, "By JANE DOE", got)
	assert.Equal(t, []string{"button.sailthru-overlay-close"}, session.Clicks)
}
