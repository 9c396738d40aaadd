package article

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pevans/newsgrab/browser"
	"github.com/pevans/newsgrab/scraper"
)

// Extractor turns article URLs into Records, one browser session per URL.
type Extractor struct {
	opener browser.Opener
	site   scraper.SiteConfig
	sleep  Sleeper
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithSleeper replaces the timed waits used while driving pages.
func WithSleeper(s Sleeper) Option {
	return func(x *Extractor) {
		x.sleep = s
	}
}

// WithClock replaces the clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(x *Extractor) {
		x.now = now
	}
}

// NewExtractor creates an Extractor for pages following site's conventions.
func NewExtractor(opener browser.Opener, site scraper.SiteConfig, opts ...Option) *Extractor {
	x := &Extractor{
		opener: opener,
		site:   site,
		sleep:  SleepContext,
		now:    time.Now,
	}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Extract produces exactly one Record for url. Missing fields and images
// degrade the record; a page that cannot be loaded or driven yields a
// failed record carrying whatever was gathered before the failure. The only
// error is failing to start a browser session, which no later article could
// recover from either. The session is always closed before returning.
func (x *Extractor) Extract(ctx context.Context, url string) (Record, error) {
	session, err := x.opener.Open(ctx)
	if err != nil {
		return Record{}, eris.Wrap(err, "article: open browser session")
	}
	defer func() {
		if err := session.Close(); err != nil {
			zap.L().Warn("article: closing browser session failed",
				zap.String("url", url),
				zap.Error(err),
			)
		}
	}()

	zap.L().Info("article: scraping page", zap.String("url", url))
	return x.assemble(ctx, session, url), nil
}

// ExtractAll extracts urls one after another, in order. It stops at the
// first infrastructure failure and returns the records produced so far.
func (x *Extractor) ExtractAll(ctx context.Context, urls []string) ([]Record, error) {
	records := make([]Record, 0, len(urls))
	for _, url := range urls {
		rec, err := x.Extract(ctx, url)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// assembly accumulates stage outputs until the Record is built.
type assembly struct {
	data RecordData
	log  *zap.Logger
}

func (a *assembly) advance(s State) {
	a.log.Debug("article: state", zap.String("from", string(a.data.State)), zap.String("to", string(s)))
	a.data.State = s
}

// fail moves to StateFailed, keeping everything gathered so far.
func (a *assembly) fail(err error) {
	a.log.Warn("article: problem scraping page", zap.Error(err))
	a.advance(StateFailed)
}

// assemble runs the page through every stage. Each stage handles its own
// missing elements, so one broken field never stops the next stage. Only a
// session-level failure short-circuits to StateFailed.
func (x *Extractor) assemble(ctx context.Context, session browser.Session, url string) Record {
	a := &assembly{
		data: RecordData{
			SourceURL:   url,
			Author:      NotFound(),
			PublishedAt: NotFound(),
			State:       StateCreated,
		},
		log: zap.L().With(zap.String("url", url)),
	}
	build := func() Record {
		a.data.ScrapedAt = x.now()
		return NewRecord(a.data)
	}

	a.advance(StatePageLoading)
	if err := session.Navigate(ctx, url); err != nil {
		a.fail(err)
		return build()
	}

	page := NewPage(session, x.site, x.sleep)
	page.WaitUntilStable(ctx, x.site.PollInterval, x.site.MaxWait)
	if err := page.Lost(); err != nil {
		a.fail(err)
		return build()
	}
	a.advance(StatePageStable)

	headline, _ := page.Headline(ctx).Value()
	a.data.Headline = headline
	a.data.Author = page.Author(ctx)
	a.data.PublishedAt = page.Timestamp(ctx)
	if err := page.Lost(); err != nil {
		a.fail(err)
		return build()
	}
	a.advance(StateFieldsExtracted)

	a.data.ImageURLs = page.CollectImages(ctx).URLs
	if err := page.Lost(); err != nil {
		a.fail(err)
		return build()
	}
	a.advance(StateImagesCollected)

	a.advance(StateAssembled)
	return build()
}
