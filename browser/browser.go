// Package browser defines the capability a page-interaction engine needs from
// a real browser, and a chromedp-backed implementation of it.
package browser

import (
	"context"
	"math"
)

// Scripts evaluated through Session.ExecuteScript. Both are expressions, not
// function bodies.
const (
	ScrollOffsetScript = "window.pageYOffset"
	PageHeightScript   = "document.body.scrollHeight"
)

// Key names a synthetic keyboard key.
type Key string

// KeyPageDown scrolls the focused document down by one page.
const KeyPageDown Key = "PageDown"

// Finder is anything that can run a CSS query: a whole page or a single
// element used as the query root.
type Finder interface {
	FindAll(ctx context.Context, selector string) ([]Element, error)
}

// Session is one open browser instance with a single tab. A Session is owned
// by exactly one article extraction and is not safe for concurrent use.
type Session interface {
	Finder

	// Navigate loads url and waits for the document body to exist.
	Navigate(ctx context.Context, url string) error

	// Title returns the document title.
	Title(ctx context.Context) (string, error)

	// ExecuteScript evaluates a JavaScript expression and returns its value
	// decoded from JSON (numbers are float64).
	ExecuteScript(ctx context.Context, script string) (any, error)

	// PressKey dispatches a key press to the focused document.
	PressKey(ctx context.Context, key Key) error

	// MoveAndClick moves the pointer onto el and clicks at that spot,
	// without waiting for el to become visible or interactable.
	MoveAndClick(ctx context.Context, el Element) error

	// PageHeight returns the current content height in CSS pixels.
	PageHeight(ctx context.Context) (int, error)

	// Close releases the browser. It is safe to call more than once.
	Close() error
}

// Element is a reference to one DOM node. Reads fail with ErrStaleElement
// once the node has been detached by a re-render.
type Element interface {
	Finder

	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)

	// Attribute returns the value of the named attribute and whether the
	// attribute is present at all.
	Attribute(ctx context.Context, name string) (string, bool, error)

	// Click clicks the element.
	Click(ctx context.Context) error
}

// Opener starts browser sessions. Errors from Open are infrastructure
// failures: no page work can happen without a session.
type Opener interface {
	Open(ctx context.Context) (Session, error)
}

// FindOne returns the first element matching selector under f, or
// ErrNotFound when nothing matches.
func FindOne(ctx context.Context, f Finder, selector string) (Element, error) {
	elems, err := f.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, notFound(selector)
	}
	return elems[0], nil
}

// ToInt converts a decoded script value into an int. JSON numbers arrive as
// float64; drivers that decode into integer types are handled too.
func ToInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case float32:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	default:
		return 0, false
	}
}
