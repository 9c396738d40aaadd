package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pevans/newsgrab/runs"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect scrape run history",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scrape runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := runs.NewStore(cfg.Storage.RunsDSN)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		list, err := st.ListRuns(runs.RunFilter{Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, list)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show every article of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return eris.Wrap(err, "runs show: parse run id")
		}

		st, err := runs.NewStore(cfg.Storage.RunsDSN)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(id)
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		formatRun(os.Stdout, run)
		return nil
	},
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

func formatRunsList(w io.Writer, list []runs.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tSITE\tKEYWORD\tARTICLES\tFAILED")
	for _, r := range list {
		articles := "running"
		if r.IsFinished() {
			articles = fmt.Sprintf("%d/%d", r.Articles, r.Requested)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			r.RunID, r.StartedAt.Local().Format(time.DateTime), r.Site, r.Keyword, articles, r.Failed)
	}
	tw.Flush() //nolint:errcheck
}

func formatRun(w io.Writer, r *runs.Run) {
	fmt.Fprintf(w, "Run:      %s\n", r.RunID)
	fmt.Fprintf(w, "Site:     %s\n", r.Site)
	fmt.Fprintf(w, "Keyword:  %s\n", r.Keyword)
	fmt.Fprintf(w, "Started:  %s\n", r.StartedAt.Local().Format(time.DateTime))
	if r.IsFinished() {
		fmt.Fprintf(w, "Finished: %s\n", r.FinishedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(w, "Articles: %d (%d failed)\n\n", r.Articles, r.Failed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ARTICLE ID\tSTATE\tURL")
	for _, e := range r.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ArticleID, e.State, e.URL)
	}
	tw.Flush() //nolint:errcheck
}
