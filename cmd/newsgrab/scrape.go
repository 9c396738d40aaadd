package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pevans/newsgrab/archive"
	"github.com/pevans/newsgrab/article"
	"github.com/pevans/newsgrab/browser"
	"github.com/pevans/newsgrab/report"
	"github.com/pevans/newsgrab/runs"
	"github.com/pevans/newsgrab/scraper"
	"github.com/pevans/newsgrab/search"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Search for articles and scrape each one",
	Long: "Runs a keyword search restricted to the configured site, scrapes every result " +
		"in its own browser session, archives the records and prints a report.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts, err := scrapeOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		env := &scrapeEnv{
			opener: browser.NewChromeOpener(cfg.BrowserOptions()),
			site:   cfg.SiteConfig(),
		}
		if len(opts.URLs) == 0 {
			if env.searcher, err = cfg.Searcher(); err != nil {
				return err
			}
		}
		if !opts.NoArchive {
			a, r, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer r.Close() //nolint:errcheck
			env.archive, env.runs = a, r
		}

		out := io.Writer(os.Stdout)
		if opts.Output != "" {
			f, err := os.Create(opts.Output)
			if err != nil {
				return eris.Wrap(err, "scrape: create output file")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		return env.run(cmd.Context(), opts, out)
	},
}

func init() {
	f := scrapeCmd.Flags()
	f.String("site", "", "site filter for the search (default from config)")
	f.StringP("keyword", "k", "", "search keyword")
	f.IntP("count", "n", 2, "number of search results to scrape")
	f.StringSlice("url", nil, "scrape these article URLs instead of searching")
	f.StringP("format", "f", string(report.FormatHTML), "report format: html, table or json")
	f.StringP("output", "o", "", "write the report to this file instead of stdout")
	f.Bool("no-archive", false, "do not save records or run history")
	rootCmd.AddCommand(scrapeCmd)
}

type scrapeOptions struct {
	Site      string
	Keyword   string
	Count     int
	URLs      []string
	Format    report.Format
	Output    string
	NoArchive bool
}

func scrapeOptionsFromFlags(cmd *cobra.Command) (scrapeOptions, error) {
	f := cmd.Flags()
	site, _ := f.GetString("site")
	keyword, _ := f.GetString("keyword")
	count, _ := f.GetInt("count")
	urls, _ := f.GetStringSlice("url")
	format, _ := f.GetString("format")
	output, _ := f.GetString("output")
	noArchive, _ := f.GetBool("no-archive")

	if site == "" {
		site = cfg.Search.Site
	}
	if keyword == "" && len(urls) == 0 {
		return scrapeOptions{}, eris.New("scrape: --keyword or --url is required")
	}
	if count < 1 {
		return scrapeOptions{}, eris.New("scrape: --count must be at least 1")
	}
	fmtv, err := report.ParseFormat(format)
	if err != nil {
		return scrapeOptions{}, err
	}

	return scrapeOptions{
		Site:      site,
		Keyword:   keyword,
		Count:     count,
		URLs:      urls,
		Format:    fmtv,
		Output:    output,
		NoArchive: noArchive,
	}, nil
}

// scrapeEnv holds what a scrape run talks to.
type scrapeEnv struct {
	searcher search.Searcher
	opener   browser.Opener
	site     scraper.SiteConfig
	archive  *archive.Archive
	runs     *runs.Store
	extract  []article.Option
}

// run searches, extracts every result, records the run and writes the
// report. Pages that fail still appear in the report as failed records.
func (e *scrapeEnv) run(ctx context.Context, opts scrapeOptions, out io.Writer) error {
	urls := opts.URLs
	if len(urls) == 0 {
		results, err := e.searcher.Search(ctx, opts.Site, opts.Keyword, opts.Count)
		if err != nil {
			return eris.Wrap(err, "scrape: search")
		}
		urls = search.Links(results)
		zap.L().Info("scrape: search finished",
			zap.String("site", opts.Site),
			zap.String("keyword", opts.Keyword),
			zap.Int("results", len(urls)),
		)
	}

	var run *runs.Run
	if !opts.NoArchive {
		r, err := e.runs.StartRun(opts.Site, opts.Keyword, opts.Count)
		if err != nil {
			return err
		}
		run = r
	}

	x := article.NewExtractor(e.opener, e.site, e.extract...)
	recs, extractErr := x.ExtractAll(ctx, urls)

	// An aborted batch still closes its run with what was gathered.
	if run != nil {
		if err := e.archive.SaveAll(recs); err != nil {
			return err
		}
		if err := e.runs.FinishRun(run.RunID, recs); err != nil {
			return err
		}
	}
	if extractErr != nil {
		return eris.Wrap(extractErr, "scrape: extract")
	}

	failed := 0
	for _, rec := range recs {
		if rec.Failed() {
			failed++
		}
	}
	zap.L().Info("scrape: done", zap.Int("articles", len(recs)), zap.Int("failed", failed))

	return report.Render(out, opts.Format, recs)
}
