package article

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pevans/newsgrab/browser/browsertest"
)

// TestWaitUntilStable_StableAfterOneInterval verifies two equal readings end
// the wait after a single poll interval
func TestWaitUntilStable_StableAfterOneInterval(t *testing.T) {
	p, session, sleeps := newTestPage(t, browsertest.Page{Heights: []int{500, 500}})

	got := p.WaitUntilStable(context.Background(), 4*time.Second, 16*time.Second)

	assert.True(t, got.Stable)
	assert.Equal(t, 4*time.Second, got.Waited)
	assert.Equal(t, 2, got.Polls)
	assert.Equal(t, 2, session.HeightReads())
	assert.Equal(t, []time.Duration{4 * time.Second}, sleeps.calls)
}

// TestWaitUntilStable_GrowingPageGivesUp verifies a page that never settles
// is abandoned within the bound
func TestWaitUntilStable_GrowingPageGivesUp(t *testing.T) {
	heights := make([]int, 100)
	for i := range heights {
		heights[i] = (i + 1) * 1000
	}
	p, _, sleeps := newTestPage(t, browsertest.Page{Heights: heights})

	got := p.WaitUntilStable(context.Background(), 4*time.Second, 16*time.Second)

	assert.False(t, got.Stable)
	assert.LessOrEqual(t, got.Waited, 20*time.Second)
	assert.Equal(t, 16*time.Second, sleeps.total())
	assert.Equal(t, 5, got.Polls)
	assert.NoError(t, p.Lost(), "an unstable page is not a failure")
}

// TestWaitUntilStable_SettlesLate verifies the wait ends at the first pair
// of equal readings
func TestWaitUntilStable_SettlesLate(t *testing.T) {
	p, _, _ := newTestPage(t, browsertest.Page{Heights: []int{100, 300, 900, 900}})

	got := p.WaitUntilStable(context.Background(), 4*time.Second, 16*time.Second)

	assert.True(t, got.Stable)
	assert.Equal(t, 12*time.Second, got.Waited)
	assert.Equal(t, 4, got.Polls)
}

// TestWaitUntilStable_IntervalLongerThanMaxWait verifies one poll still
// happens when the interval exceeds the bound
func TestWaitUntilStable_IntervalLongerThanMaxWait(t *testing.T) {
	p, _, _ := newTestPage(t, browsertest.Page{Heights: []int{1, 2, 3}})

	got := p.WaitUntilStable(context.Background(), 10*time.Second, 5*time.Second)

	assert.False(t, got.Stable)
	assert.Equal(t, 10*time.Second, got.Waited)
	assert.LessOrEqual(t, got.Waited, 15*time.Second)
}

// TestWaitUntilStable_UnreadableHeight verifies a failed reading ends the
// wait without panicking
func TestWaitUntilStable_UnreadableHeight(t *testing.T) {
	p, _, sleeps := newTestPage(t, browsertest.Page{HeightErr: errSessionGone})

	got := p.WaitUntilStable(context.Background(), 4*time.Second, 16*time.Second)

	assert.False(t, got.Stable)
	assert.Equal(t, 1, got.Polls)
	assert.Empty(t, sleeps.calls)
	assert.Error(t, p.Lost())
}

// TestWaitUntilStable_SuppressesPopupsAtEnd verifies the overlay is
// dismissed once the wait finishes
func TestWaitUntilStable_SuppressesPopupsAtEnd(t *testing.T) {
	p, session, _ := newTestPage(t, browsertest.Page{
		States:  []string{html(overlay)},
		Heights: []int{10, 10},
	})

	p.WaitUntilStable(context.Background(), time.Second, 4*time.Second)

	assert.Equal(t, []string{"button.sailthru-overlay-close"}, session.Clicks)
}
