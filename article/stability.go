package article

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Stability describes how a readiness wait ended. Callers treat both
// outcomes the same way; it exists for logging and tests.
type Stability struct {
	// Stable is true when two consecutive polls read the same height.
	Stable bool
	// Waited is the total time slept between polls.
	Waited time.Duration
	// Polls counts height readings.
	Polls int
}

// WaitUntilStable polls the page height every interval until two readings
// match or maxWait has been slept. It never fails: a page that keeps growing
// or an unreadable height ends the wait, and the caller proceeds anyway.
// The total wait is at most maxWait plus one interval. Popups are suppressed
// once at the end either way.
func (p *Page) WaitUntilStable(ctx context.Context, interval, maxWait time.Duration) Stability {
	var result Stability
	defer func() {
		p.SuppressPopups(ctx)
		zap.L().Debug("article: page stability wait finished",
			zap.Bool("stable", result.Stable),
			zap.Duration("waited", result.Waited),
			zap.Int("polls", result.Polls),
		)
	}()

	if p.lost != nil || interval <= 0 {
		return result
	}

	prev, err := p.session.PageHeight(ctx)
	result.Polls++
	if err != nil {
		p.observe(err)
		return result
	}

	for result.Waited < maxWait {
		p.sleep(ctx, interval)
		result.Waited += interval

		cur, err := p.session.PageHeight(ctx)
		result.Polls++
		if err != nil {
			p.observe(err)
			return result
		}
		if cur == prev {
			result.Stable = true
			return result
		}
		prev = cur
	}
	return result
}
