package article

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/pevans/newsgrab/browser"
)

// Headline returns the document title. An empty title is a valid headline.
func (p *Page) Headline(ctx context.Context) Field {
	if p.lost != nil {
		return NotFound()
	}
	title, err := p.session.Title(ctx)
	if err != nil {
		p.observe(err)
		zap.L().Debug("article: title unreadable", zap.Error(err))
		return NotFound()
	}
	return Found(strings.TrimSpace(title))
}

// Author returns the byline text with whitespace collapsed. A byline
// element that exists but holds only whitespace counts as absent and yields
// NotFound, so the record shows the author sentinel rather than "". A
// missing byline or a failed read also yields NotFound.
func (p *Page) Author(ctx context.Context) Field {
	el, err := p.FindOne(ctx, p.site.BylineSelector)
	if err != nil {
		logLookupMiss("byline", err)
		return NotFound()
	}

	text, err := el.Text(ctx)
	if err != nil {
		p.observe(err)
		logLookupMiss("byline", err)
		return NotFound()
	}

	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return NotFound()
	}
	return Found(text)
}

// Timestamp returns the raw publish timestamp attribute, unparsed.
func (p *Page) Timestamp(ctx context.Context) Field {
	el, err := p.FindOne(ctx, p.site.TimestampSelector)
	if err != nil {
		logLookupMiss("timestamp", err)
		return NotFound()
	}

	value, ok, err := el.Attribute(ctx, p.site.TimestampAttribute)
	if err != nil {
		p.observe(err)
		logLookupMiss("timestamp", err)
		return NotFound()
	}
	if !ok || strings.TrimSpace(value) == "" {
		return NotFound()
	}
	return Found(strings.TrimSpace(value))
}

func logLookupMiss(field string, err error) {
	if browser.IsNotFound(err) {
		return
	}
	zap.L().Debug("article: field lookup failed",
		zap.String("field", field),
		zap.Error(err),
	)
}
