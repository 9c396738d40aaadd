package article

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/pevans/newsgrab/browser"
)

// Mode is how the images of a page are reached.
type Mode int

const (
	// SinglePage means the photos are inline; scrolling loads them.
	SinglePage Mode = iota
	// Carousel means the photos sit behind a click-through image modal.
	Carousel
)

func (m Mode) String() string {
	if m == Carousel {
		return "carousel"
	}
	return "single_page"
}

// imageSet is a set of image URLs.
type imageSet map[string]struct{}

func newImageSet(urls ...string) imageSet {
	s := imageSet{}
	for _, u := range urls {
		s.add(u)
	}
	return s
}

// add inserts url and reports whether it was new.
func (s imageSet) add(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := s[url]; ok {
		return false
	}
	s[url] = struct{}{}
	return true
}

func (s imageSet) sorted() []string {
	out := make([]string, 0, len(s))
	for u := range s {
		out = append(out, u)
	}
	slices.Sort(out)
	return out
}

// carouselState lives only while the images of one page are collected.
type carouselState struct {
	mode   Mode
	clicks int
	seen   imageSet
}

// Collection is the result of image collection for one page.
type Collection struct {
	Mode   Mode
	Clicks int
	// URLs are the distinct press photo URLs in lexical order.
	URLs []string
}

// CollectImages gathers every distinct press photo reachable from the page.
// Inline photos are loaded by scrolling; a gallery is walked by clicking its
// advance control until the control disappears or the click cap is hit.
// A gallery whose modal will not open is treated as an inline page.
// Finding nothing is a normal outcome.
func (p *Page) CollectImages(ctx context.Context) Collection {
	state := &carouselState{seen: imageSet{}}

	arrows, err := p.FindAll(ctx, p.site.GalleryArrowSelector)
	if err == nil && len(arrows) > 0 && p.openModal(ctx, arrows[0]) {
		state.mode = Carousel
		p.walkCarousel(ctx, state)
	} else if p.lost == nil {
		state.mode = SinglePage
		p.scrollToBottom(ctx)
		p.scanImages(ctx, finderFunc(p.FindAll), state.seen)
	}

	zap.L().Debug("article: images collected",
		zap.Stringer("mode", state.mode),
		zap.Int("clicks", state.clicks),
		zap.Int("images", len(state.seen)),
	)
	return Collection{
		Mode:   state.mode,
		Clicks: state.clicks,
		URLs:   state.seen.sorted(),
	}
}

// openModal clicks the page's gallery arrow and reports whether the image
// modal opened. The modal arrow selector only means "advance" inside the
// modal.
func (p *Page) openModal(ctx context.Context, galleryArrow browser.Element) bool {
	// Clicking the arrow node directly is sometimes intercepted by an
	// overlapping element, so move onto its spot and click there.
	if err := p.session.MoveAndClick(ctx, galleryArrow); err != nil {
		p.observe(err)
		zap.L().Debug("article: opening image modal failed", zap.Error(err))
		return false
	}
	p.sleep(ctx, p.site.ClickSettle)
	return true
}

// walkCarousel advances through an open image modal.
//
// The advance control is looked up with two different selectors: the
// gallery arrow on the article page, and the modal arrow once the modal is
// open, because the site swaps the node when the modal opens.
//
// The cap is checked before each click, so at most MaxCarouselClicks clicks
// are made. Reaching the cap ends the walk normally.
func (p *Page) walkCarousel(ctx context.Context, state *carouselState) {

	// The first photo shown in the modal.
	p.scanImages(ctx, finderFunc(p.FindAll), state.seen)

	for state.clicks < p.site.MaxCarouselClicks {
		next, err := p.FindOne(ctx, p.site.ModalArrowSelector)
		if err != nil {
			logLookupMiss("modal arrow", err)
			return
		}

		if err := next.Click(ctx); err != nil {
			p.observe(err)
			zap.L().Debug("article: carousel click failed", zap.Error(err))
		}
		state.clicks++
		p.sleep(ctx, p.site.ClickSettle)

		container, err := p.FindOne(ctx, p.site.ImageContainerSelector)
		if err != nil {
			logLookupMiss("image container", err)
			continue
		}
		p.scanImages(ctx, p.within(container), state.seen)
	}

	if p.lost == nil {
		zap.L().Info("article: carousel click cap reached",
			zap.Int("cap", p.site.MaxCarouselClicks),
		)
	}
}

// scanImages adds the source of every press photo under f to seen and
// returns how many were new. Elements that go stale mid-scan are skipped.
func (p *Page) scanImages(ctx context.Context, f browser.Finder, seen imageSet) int {
	imgs, err := f.FindAll(ctx, p.site.ImageSelector)
	if err != nil {
		logLookupMiss("images", err)
		return 0
	}

	added := 0
	for _, img := range imgs {
		src, ok, err := img.Attribute(ctx, "src")
		if err != nil {
			p.observe(err)
			if p.lost != nil {
				return added
			}
			continue
		}
		if !ok || !p.site.IsPressPhoto(src) {
			continue
		}
		if seen.add(src) {
			added++
		}
	}
	return added
}

// scrollToBottom pages down until the scroll offset stops moving, so lazy
// images get loaded. It is bounded by MaxScrollSteps.
func (p *Page) scrollToBottom(ctx context.Context) {
	for range p.site.MaxScrollSteps {
		p.SuppressPopups(ctx)

		before, ok := p.scrollOffset(ctx)
		if !ok {
			return
		}
		if err := p.session.PressKey(ctx, browser.KeyPageDown); err != nil {
			p.observe(err)
			return
		}
		p.sleep(ctx, p.site.ScrollSettle)

		after, ok := p.scrollOffset(ctx)
		if !ok || before >= after {
			return
		}
	}
}

func (p *Page) scrollOffset(ctx context.Context) (int, bool) {
	if p.lost != nil {
		return 0, false
	}
	v, err := p.session.ExecuteScript(ctx, browser.ScrollOffsetScript)
	if err != nil {
		p.observe(err)
		return 0, false
	}
	return browser.ToInt(v)
}
