package article

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/newsgrab/browser"
	"github.com/pevans/newsgrab/browser/browsertest"
	"github.com/pevans/newsgrab/scraper"
)

// Test helper: records timed waits instead of sleeping
type sleepLog struct {
	calls []time.Duration
}

func (s *sleepLog) sleep(_ context.Context, d time.Duration) {
	s.calls = append(s.calls, d)
}

func (s *sleepLog) total() time.Duration {
	var sum time.Duration
	for _, d := range s.calls {
		sum += d
	}
	return sum
}

// Test helper: wrap body markup into a full document
func html(body ...string) string {
	return "<html><body>" + strings.Join(body, "") + "</body></html>"
}

const overlay = `<div class="sailthru-overlay"><button class="sailthru-overlay-close" data-remove=".sailthru-overlay"></button></div>`

// Test helper: a Page over a fake session with no real waiting
func newTestPage(t *testing.T, page browsertest.Page) (*Page, *browsertest.Session, *sleepLog) {
	t.Helper()
	session := browsertest.New(page)
	sleeps := &sleepLog{}
	return NewPage(session, scraper.APNews(), sleeps.sleep), session, sleeps
}

var errSessionGone = eris.Wrap(browser.ErrSession, "chrome exited")

// TestSuppressPopups_ClosesOverlay verifies the close control is clicked
func TestSuppressPopups_ClosesOverlay(t *testing.T) {
	p, session, _ := newTestPage(t, browsertest.Page{States: []string{html(overlay)}})

	assert.True(t, p.SuppressPopups(context.Background()))
	assert.Equal(t, []string{"button.sailthru-overlay-close"}, session.Clicks)

	// Gone now, so a second call is a no-op
	assert.False(t, p.SuppressPopups(context.Background()))
	assert.Len(t, session.Clicks, 1)
}

// TestSuppressPopups_AbsentIsNoop verifies a page without an overlay is fine
func TestSuppressPopups_AbsentIsNoop(t *testing.T) {
	p, session, _ := newTestPage(t, browsertest.Page{})

	assert.False(t, p.SuppressPopups(context.Background()))
	assert.Empty(t, session.Clicks)
	assert.NoError(t, p.Lost())
}

// TestSuppressPopups_ClickFailureIgnored verifies a broken close control is
// not fatal
func TestSuppressPopups_ClickFailureIgnored(t *testing.T) {
	p, _, _ := newTestPage(t, browsertest.Page{States: []string{
		html(`<button class="sailthru-overlay-close" data-click-error></button>`),
	}})

	assert.False(t, p.SuppressPopups(context.Background()))
	assert.NoError(t, p.Lost())
}

// TestFindAll_SuppressesPopupsFirst verifies the overlay is dismissed before
// the page is queried
func TestFindAll_SuppressesPopupsFirst(t *testing.T) {
	p, session, _ := newTestPage(t, browsertest.Page{States: []string{
		html(overlay, `<p class="x">one</p>`),
	}})

	elems, err := p.FindAll(context.Background(), ".x")

	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, 1, session.Queries[scraper.APNews().OverlayCloseSelector])
	assert.Equal(t, []string{"button.sailthru-overlay-close"}, session.Clicks)

	// The element was taken after the overlay was removed, so it is live
	text, err := elems[0].Text(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "one", text)
}

// TestFindOne_NotFound verifies a missing element is reported as such
func TestFindOne_NotFound(t *testing.T) {
	p, _, _ := newTestPage(t, browsertest.Page{})

	_, err := p.FindOne(context.Background(), ".missing")

	assert.True(t, browser.IsNotFound(err))
	assert.NoError(t, p.Lost(), "a missing element does not lose the session")
}

// TestPage_SessionLossStopsBrowserWork verifies nothing is queried after a
// session failure
func TestPage_SessionLossStopsBrowserWork(t *testing.T) {
	p, session, _ := newTestPage(t, browsertest.Page{FindErr: errSessionGone})

	_, err := p.FindAll(context.Background(), ".x")
	require.Error(t, err)
	require.ErrorIs(t, p.Lost(), browser.ErrSession)

	queries := session.Queries[".x"]
	_, err = p.FindAll(context.Background(), ".x")
	assert.ErrorIs(t, err, browser.ErrSession)
	assert.Equal(t, queries, session.Queries[".x"])
}

// TestSleepContext_ReturnsOnCancel verifies a cancelled context cuts a wait
// short
func TestSleepContext_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	SleepContext(ctx, time.Hour)

	assert.Less(t, time.Since(start), time.Second)
}
