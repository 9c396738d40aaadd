package search

import (
	"context"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FeedSearcher searches the items of RSS and Atom feeds. It needs no API key,
// at the cost of only seeing what the feeds currently carry.
type FeedSearcher struct {
	feeds  []string
	parser *gofeed.Parser
}

var _ Searcher = (*FeedSearcher)(nil)

// NewFeedSearcher creates a searcher over the given feed URLs.
func NewFeedSearcher(feeds []string) *FeedSearcher {
	return &FeedSearcher{feeds: feeds, parser: gofeed.NewParser()}
}

// Search returns feed items whose link contains site and whose title or
// description contains keyword, ignoring case. Results keep feed order.
func (f *FeedSearcher) Search(ctx context.Context, site, keyword string, count int) ([]Result, error) {
	if len(f.feeds) == 0 {
		return nil, eris.New("feed: no feeds configured")
	}

	kw := strings.ToLower(strings.TrimSpace(keyword))
	seen := map[string]bool{}
	results := []Result{}

	for _, u := range f.feeds {
		feed, err := f.parser.ParseURLWithContext(u, ctx)
		if err != nil {
			return nil, eris.Wrapf(err, "feed: parse %s", u)
		}
		zap.L().Debug("feed: fetched", zap.String("url", u), zap.Int("items", len(feed.Items)))

		for _, item := range feed.Items {
			if count > 0 && len(results) >= count {
				return results, nil
			}
			if !matches(item, site, kw) || seen[item.Link] {
				continue
			}
			seen[item.Link] = true
			results = append(results, Result{
				Link:        item.Link,
				Title:       item.Title,
				Description: item.Description,
			})
		}
	}
	return results, nil
}

func matches(item *gofeed.Item, site, kw string) bool {
	if item.Link == "" || !strings.Contains(item.Link, site) {
		return false
	}
	if kw == "" {
		return true
	}
	return strings.Contains(strings.ToLower(item.Title), kw) ||
		strings.Contains(strings.ToLower(item.Description), kw)
}
