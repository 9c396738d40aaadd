package article

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pevans/newsgrab/browser"
	"github.com/pevans/newsgrab/scraper"
)

// Sleeper pauses for d. Page interactions call it for every timed wait so
// tests can run the wait loops without real time passing.
type Sleeper func(ctx context.Context, d time.Duration)

// SleepContext sleeps for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Page drives one loaded article page. Every DOM query made through a Page
// is preceded by popup suppression, since the overlay can appear late or
// come back.
type Page struct {
	session browser.Session
	site    scraper.SiteConfig
	sleep   Sleeper

	// lost is the first session-level failure seen; once set, the page does
	// no further browser work.
	lost error
}

// NewPage wraps a session that has already navigated to an article.
func NewPage(session browser.Session, site scraper.SiteConfig, sleep Sleeper) *Page {
	if sleep == nil {
		sleep = SleepContext
	}
	return &Page{session: session, site: site, sleep: sleep}
}

// Lost returns the session-level failure that stopped this page, if any.
func (p *Page) Lost() error {
	return p.lost
}

// observe remembers err when it means the session cannot be driven.
func (p *Page) observe(err error) {
	if err != nil && p.lost == nil && browser.IsSessionFailure(err) {
		zap.L().Debug("article: session lost", zap.Error(err))
		p.lost = err
	}
}

// SuppressPopups clicks the overlay close control if it is showing. It
// reports whether a click was made; absence is not an error.
func (p *Page) SuppressPopups(ctx context.Context) bool {
	if p.lost != nil {
		return false
	}
	closers, err := p.session.FindAll(ctx, p.site.OverlayCloseSelector)
	if err != nil {
		p.observe(err)
		return false
	}
	if len(closers) == 0 {
		return false
	}
	if err := closers[0].Click(ctx); err != nil {
		p.observe(err)
		zap.L().Debug("article: overlay close click failed", zap.Error(err))
		return false
	}
	zap.L().Debug("article: dismissed overlay")
	return true
}

// FindAll suppresses popups, then queries the whole page.
func (p *Page) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if p.lost != nil {
		return nil, p.lost
	}
	p.SuppressPopups(ctx)
	elems, err := p.session.FindAll(ctx, selector)
	p.observe(err)
	return elems, err
}

// FindOne suppresses popups, then returns the first match or
// browser.ErrNotFound.
func (p *Page) FindOne(ctx context.Context, selector string) (browser.Element, error) {
	return browser.FindOne(ctx, finderFunc(p.FindAll), selector)
}

// within returns a Finder rooted at el that still suppresses popups first.
func (p *Page) within(el browser.Element) browser.Finder {
	return finderFunc(func(ctx context.Context, selector string) ([]browser.Element, error) {
		if p.lost != nil {
			return nil, p.lost
		}
		p.SuppressPopups(ctx)
		elems, err := el.FindAll(ctx, selector)
		p.observe(err)
		return elems, err
	})
}

type finderFunc func(ctx context.Context, selector string) ([]browser.Element, error)

func (f finderFunc) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	return f(ctx, selector)
}
