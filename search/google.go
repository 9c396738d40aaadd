package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://rapidapi.p.rapidapi.com"
	defaultHost    = "google-search3.p.rapidapi.com"
	defaultCountry = "ES"
)

// GoogleResponse is the body returned by the RapidAPI Google search API.
type GoogleResponse struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	TS      float64  `json:"ts"`
}

// GoogleOption configures a Google searcher.
type GoogleOption func(*Google)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) GoogleOption {
	return func(g *Google) {
		g.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) GoogleOption {
	return func(g *Google) {
		g.http = hc
	}
}

// WithHost overrides the x-rapidapi-host header.
func WithHost(host string) GoogleOption {
	return func(g *Google) {
		g.host = host
	}
}

// WithCountry restricts results to a country code.
func WithCountry(cr string) GoogleOption {
	return func(g *Google) {
		g.country = cr
	}
}

// Google searches a site through the RapidAPI Google web search API.
type Google struct {
	apiKey  string
	baseURL string
	host    string
	country string
	http    *http.Client
}

var _ Searcher = (*Google)(nil)

// NewGoogle creates a Google searcher authenticated with apiKey.
func NewGoogle(apiKey string, opts ...GoogleOption) *Google {
	g := &Google{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		host:    defaultHost,
		country: defaultCountry,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Search runs the query "site:<site> <keyword>".
func (g *Google) Search(ctx context.Context, site, keyword string, count int) ([]Result, error) {
	if g.apiKey == "" {
		return nil, eris.New("google: rapidapi key is not configured")
	}

	endpoint := g.baseURL + "/api/v1/search/" + g.query(site, keyword, count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("x-rapidapi-host", g.host)
	req.Header.Set("x-rapidapi-key", g.apiKey)

	zap.L().Debug("google: searching",
		zap.String("site", site),
		zap.String("keyword", keyword),
		zap.Int("count", count),
	)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result GoogleResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}

	results := result.Results
	if results == nil {
		results = []Result{}
	}
	if count > 0 && len(results) > count {
		results = results[:count]
	}
	return results, nil
}

// query builds the path segment the API expects. Parameters live in the
// path, not in a query string.
func (g *Google) query(site, keyword string, count int) string {
	q := "q=" + url.QueryEscape("site:"+site+" "+keyword)
	if g.country != "" {
		q += "&cr=" + url.QueryEscape(g.country)
	}
	return q + "&num=" + strconv.Itoa(count)
}
