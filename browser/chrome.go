package browser

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Browser configuration defaults.
const (
	DefaultWindowWidth    = 1366
	DefaultWindowHeight   = 900
	DefaultActionTimeout  = 30 * time.Second
	DefaultElementTimeout = 5 * time.Second
)

// Options configures how Chrome is launched. The executable path is an
// explicit value here rather than process-wide state.
type Options struct {
	Headless bool
	// LogLevel is passed to Chrome's --log-level (0 = INFO ... 3 = FATAL).
	LogLevel int
	// ExecPath is the Chrome binary; empty means let chromedp find one.
	ExecPath     string
	WindowWidth  int
	WindowHeight int
	UserAgent    string
	// ActionTimeout bounds each page-level browser call.
	ActionTimeout time.Duration
	// ElementTimeout bounds each per-element read. A detached node id
	// surfaces as this timeout expiring.
	ElementTimeout time.Duration
}

// DefaultOptions returns a headless configuration with quiet Chrome logging.
func DefaultOptions() Options {
	return Options{
		Headless:       true,
		LogLevel:       3,
		WindowWidth:    DefaultWindowWidth,
		WindowHeight:   DefaultWindowHeight,
		ActionTimeout:  DefaultActionTimeout,
		ElementTimeout: DefaultElementTimeout,
	}
}

// allocatorOptions builds the chromedp allocator flags for o.
func (o Options) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("log-level", strconv.Itoa(o.LogLevel)),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.WindowSize(o.WindowWidth, o.WindowHeight),
	)
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	return opts
}

// ChromeOpener launches a fresh Chrome process per session.
type ChromeOpener struct {
	opts Options
}

// NewChromeOpener creates an opener; zero timeouts fall back to defaults.
func NewChromeOpener(opts Options) *ChromeOpener {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = DefaultActionTimeout
	}
	if opts.ElementTimeout <= 0 {
		opts.ElementTimeout = DefaultElementTimeout
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = DefaultWindowWidth, DefaultWindowHeight
	}
	return &ChromeOpener{opts: opts}
}

// Open starts Chrome and its first tab. The browser lives until Close is
// called on the returned session or ctx is cancelled.
func (c *ChromeOpener) Open(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.opts.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(zap.S().Debugf))

	// An empty Run starts the browser process.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, eris.Wrap(err, "browser: start chrome")
	}

	return &chromeSession{
		ctx:         tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		opts:        c.opts,
	}, nil
}

type chromeSession struct {
	ctx         context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	opts        Options
	closeOnce   sync.Once
}

// run executes actions on the tab, bounded by timeout and by the caller's ctx.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx, s.opts.ActionTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return eris.Wrapf(ErrSession, "navigate %s: %v", url, err)
	}
	return nil
}

func (s *chromeSession) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Title(&title)); err != nil {
		return "", classifyErr(err, "read title")
	}
	return title, nil
}

func (s *chromeSession) FindAll(ctx context.Context, selector string) ([]Element, error) {
	return s.query(ctx, selector)
}

// query resolves selector against the document, or against the subtree of
// root when given. AtLeast(0) keeps an empty match from blocking.
func (s *chromeSession) query(ctx context.Context, selector string, root ...*cdp.Node) ([]Element, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	timeout := s.opts.ActionTimeout
	if len(root) > 0 {
		opts = append(opts, chromedp.FromNode(root[0]))
		timeout = s.opts.ElementTimeout
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, timeout, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		if len(root) > 0 {
			return nil, classifyNodeErr(err, "query "+selector)
		}
		return nil, classifyErr(err, "query "+selector)
	}

	elems := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elems = append(elems, &chromeElement{session: s, node: n})
	}
	return elems, nil
}

func (s *chromeSession) ExecuteScript(ctx context.Context, script string) (any, error) {
	var res any
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Evaluate(script, &res)); err != nil {
		return nil, classifyErr(err, "evaluate script")
	}
	return res, nil
}

func (s *chromeSession) PressKey(ctx context.Context, key Key) error {
	var k string
	switch key {
	case KeyPageDown:
		k = kb.PageDown
	default:
		k = string(key)
	}
	return classifyErr(s.run(ctx, s.opts.ActionTimeout, chromedp.KeyEvent(k)), "press "+string(key))
}

func (s *chromeSession) MoveAndClick(ctx context.Context, el Element) error {
	ce, ok := el.(*chromeElement)
	if !ok {
		return eris.New("browser: element does not belong to a chrome session")
	}
	err := s.run(ctx, s.opts.ElementTimeout, chromedp.MouseClickNode(ce.node))
	return classifyNodeErr(err, "move and click")
}

func (s *chromeSession) PageHeight(ctx context.Context) (int, error) {
	var height float64
	if err := s.run(ctx, s.opts.ActionTimeout, chromedp.Evaluate(PageHeightScript, &height)); err != nil {
		return 0, classifyErr(err, "read page height")
	}
	return int(height), nil
}

func (s *chromeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		// Cancel closes the browser gracefully before the contexts go away.
		err = chromedp.Cancel(s.ctx)
		s.tabCancel()
		s.allocCancel()
	})
	if err != nil {
		return eris.Wrap(err, "browser: close")
	}
	return nil
}

type chromeElement struct {
	session *chromeSession
	node    *cdp.Node
}

func (e *chromeElement) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *chromeElement) FindAll(ctx context.Context, selector string) ([]Element, error) {
	return e.session.query(ctx, selector, e.node)
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.session.run(ctx, e.session.opts.ElementTimeout,
		chromedp.JavascriptAttribute(e.ids(), "innerText", &text, chromedp.ByNodeID),
	)
	if err != nil {
		return "", classifyNodeErr(err, "read text")
	}
	return text, nil
}

func (e *chromeElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := e.session.run(ctx, e.session.opts.ElementTimeout,
		chromedp.AttributeValue(e.ids(), name, &value, &ok, chromedp.ByNodeID),
	)
	if err != nil {
		return "", false, classifyNodeErr(err, "read attribute "+name)
	}
	return value, ok, nil
}

func (e *chromeElement) Click(ctx context.Context) error {
	err := e.session.run(ctx, e.session.opts.ElementTimeout,
		chromedp.Click(e.ids(), chromedp.ByNodeID),
	)
	return classifyNodeErr(err, "click")
}
