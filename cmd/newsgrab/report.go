package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pevans/newsgrab/archive"
	"github.com/pevans/newsgrab/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render every archived article",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		f, err := report.ParseFormat(format)
		if err != nil {
			return err
		}

		a, err := archive.New(cfg.Storage.ArchiveDir)
		if err != nil {
			return err
		}
		return renderArchive(os.Stdout, a, f)
	},
}

func init() {
	reportCmd.Flags().StringP("format", "f", string(report.FormatTable), "report format: html, table or json")
	rootCmd.AddCommand(reportCmd)
}

func renderArchive(w io.Writer, a *archive.Archive, f report.Format) error {
	result, err := a.List()
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		zap.L().Warn("report: skipping unreadable record", zap.String("file", e.Filename), zap.Error(e.Err))
	}
	return report.Render(w, f, result.Records)
}
