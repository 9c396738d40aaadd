// Package search finds article URLs on a site for a keyword. Searching
// happens outside the browser so no page navigation is spent on it.
package search

import "context"

// Result is one search hit.
type Result struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Searcher returns up to count results on site matching keyword. An error
// is an infrastructure failure; no results is an empty slice.
type Searcher interface {
	Search(ctx context.Context, site, keyword string, count int) ([]Result, error)
}

// Links returns the non-empty links of results, in order, without repeats.
func Links(results []Result) []string {
	seen := make(map[string]bool, len(results))
	links := make([]string, 0, len(results))
	for _, r := range results {
		if r.Link == "" || seen[r.Link] {
			continue
		}
		seen[r.Link] = true
		links = append(links, r.Link)
	}
	return links
}
