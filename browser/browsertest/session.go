// Package browsertest provides a scripted, in-memory browser.Session for
// exercising page-interaction code without a real browser.
//
// A Page is a list of HTML states. The DOM is queried with goquery, and
// clicks move between states according to attributes on the clicked node:
//
//	data-next="N"      switch to state N
//	data-remove="SEL"  remove nodes matching SEL (or the node itself if empty)
//	data-stale         every read of this node fails as a stale reference
//	data-click-error   clicking this node fails
//
// Any state change invalidates element references taken before it.
package browsertest

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/pevans/newsgrab/browser"
)

// DefaultScrollStep is how far one PageDown moves the viewport.
const DefaultScrollStep = 600

// Page describes what a fake session serves.
type Page struct {
	Title  string
	States []string
	// Heights are successive PageHeight readings; the last one repeats.
	Heights []int
	// ScrollMax is the largest reachable scroll offset.
	ScrollMax  int
	ScrollStep int

	NavigateErr error
	TitleErr    error
	HeightErr   error
	// FindErr, when set, is returned by every page-level query.
	FindErr error
}

// Session is a browser.Session backed by goquery documents.
type Session struct {
	page    Page
	docs    []*goquery.Document
	current int
	version int

	heightReads int
	scrollY     int

	// Navigated holds every URL passed to Navigate.
	Navigated []string
	// Clicks holds a description of every clicked node, in order.
	Clicks []string
	// MoveClicks counts MoveAndClick calls.
	MoveClicks int
	// Queries counts page-level FindAll calls, keyed by selector.
	Queries map[string]int
	// KeyPresses counts PressKey calls.
	KeyPresses int
	// CloseCount counts Close calls.
	CloseCount int
}

var _ browser.Session = (*Session)(nil)

// New parses every state of page. It panics on unparsable HTML, which only
// happens with a broken test fixture.
func New(page Page) *Session {
	if len(page.States) == 0 {
		page.States = []string{"<html><body></body></html>"}
	}
	if page.ScrollStep <= 0 {
		page.ScrollStep = DefaultScrollStep
	}

	s := &Session{page: page, Queries: map[string]int{}}
	for i, state := range page.States {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(state))
		if err != nil {
			panic(fmt.Sprintf("browsertest: state %d: %v", i, err))
		}
		s.docs = append(s.docs, doc)
	}
	return s
}

// State returns the index of the state currently shown.
func (s *Session) State() int {
	return s.current
}

// Closed reports whether Close has been called at least once.
func (s *Session) Closed() bool {
	return s.CloseCount > 0
}

// HeightReads counts PageHeight calls.
func (s *Session) HeightReads() int {
	return s.heightReads
}

// ScrollY returns the current scroll offset.
func (s *Session) ScrollY() int {
	return s.scrollY
}

func (s *Session) Navigate(_ context.Context, url string) error {
	s.Navigated = append(s.Navigated, url)
	return s.page.NavigateErr
}

func (s *Session) Title(_ context.Context) (string, error) {
	if s.page.TitleErr != nil {
		return "", s.page.TitleErr
	}
	return s.page.Title, nil
}

func (s *Session) FindAll(_ context.Context, selector string) ([]browser.Element, error) {
	s.Queries[selector]++
	if s.page.FindErr != nil {
		return nil, s.page.FindErr
	}
	return s.wrap(s.docs[s.current].Find(selector)), nil
}

func (s *Session) ExecuteScript(_ context.Context, script string) (any, error) {
	switch script {
	case browser.ScrollOffsetScript:
		return float64(s.scrollY), nil
	case browser.PageHeightScript:
		h, err := s.PageHeight(context.Background())
		return float64(h), err
	}
	return nil, eris.Errorf("browsertest: unsupported script %q", script)
}

func (s *Session) PressKey(_ context.Context, key browser.Key) error {
	s.KeyPresses++
	if key == browser.KeyPageDown {
		s.scrollY = min(s.scrollY+s.page.ScrollStep, s.page.ScrollMax)
	}
	return nil
}

func (s *Session) MoveAndClick(ctx context.Context, el browser.Element) error {
	s.MoveClicks++
	return el.Click(ctx)
}

func (s *Session) PageHeight(_ context.Context) (int, error) {
	s.heightReads++
	if s.page.HeightErr != nil {
		return 0, s.page.HeightErr
	}
	if len(s.page.Heights) == 0 {
		return 0, nil
	}
	i := min(s.heightReads-1, len(s.page.Heights)-1)
	return s.page.Heights[i], nil
}

func (s *Session) Close() error {
	s.CloseCount++
	return nil
}

func (s *Session) wrap(sel *goquery.Selection) []browser.Element {
	elems := make([]browser.Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		elems = append(elems, &Element{session: s, sel: node, version: s.version})
	})
	return elems
}

// mutate records a DOM change, invalidating all outstanding elements.
func (s *Session) mutate() {
	s.version++
}

// Element is a node of a Session document.
type Element struct {
	session *Session
	sel     *goquery.Selection
	version int
}

func (e *Element) check() error {
	if e.version != e.session.version {
		return eris.Wrap(browser.ErrStaleElement, "browsertest: document changed")
	}
	if _, ok := e.sel.Attr("data-stale"); ok {
		return eris.Wrap(browser.ErrStaleElement, "browsertest: node marked stale")
	}
	return nil
}

func (e *Element) FindAll(_ context.Context, selector string) ([]browser.Element, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	return e.session.wrap(e.sel.Find(selector)), nil
}

func (e *Element) Text(_ context.Context) (string, error) {
	if err := e.check(); err != nil {
		return "", err
	}
	return e.sel.Text(), nil
}

func (e *Element) Attribute(_ context.Context, name string) (string, bool, error) {
	if err := e.check(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *Element) Click(_ context.Context) error {
	if err := e.check(); err != nil {
		return err
	}
	if _, ok := e.sel.Attr("data-click-error"); ok {
		return eris.New("browsertest: element is not clickable")
	}

	s := e.session
	s.Clicks = append(s.Clicks, describe(e.sel))

	if next, ok := e.sel.Attr("data-next"); ok {
		var n int
		if _, err := fmt.Sscanf(next, "%d", &n); err != nil || n < 0 || n >= len(s.docs) {
			return eris.Errorf("browsertest: bad data-next %q", next)
		}
		s.current = n
		s.mutate()
		return nil
	}

	if target, ok := e.sel.Attr("data-remove"); ok {
		if target == "" {
			e.sel.Remove()
		} else {
			s.docs[s.current].Find(target).Remove()
		}
		s.mutate()
	}
	return nil
}

func describe(sel *goquery.Selection) string {
	name := goquery.NodeName(sel)
	if class, ok := sel.Attr("class"); ok {
		return name + "." + strings.ReplaceAll(class, " ", ".")
	}
	return name
}

// Opener hands out prepared sessions in order.
type Opener struct {
	Sessions []*Session
	// Err, when set, makes every Open fail.
	Err    error
	opened int
}

var _ browser.Opener = (*Opener)(nil)

// NewOpener returns an opener serving one session per page.
func NewOpener(pages ...Page) *Opener {
	o := &Opener{}
	for _, p := range pages {
		o.Sessions = append(o.Sessions, New(p))
	}
	return o
}

func (o *Opener) Open(_ context.Context) (browser.Session, error) {
	if o.Err != nil {
		return nil, o.Err
	}
	if o.opened >= len(o.Sessions) {
		return nil, eris.New("browsertest: no more sessions")
	}
	s := o.Sessions[o.opened]
	o.opened++
	return s, nil
}

// Opened counts successful Open calls.
func (o *Opener) Opened() int {
	return o.opened
}
