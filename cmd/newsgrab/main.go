package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pevans/newsgrab/archive"
	"github.com/pevans/newsgrab/config"
	"github.com/pevans/newsgrab/runs"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "newsgrab",
	Short: "Scrape news articles found by keyword search",
	Long: "Searches a news site for a keyword, drives a headless browser through every " +
		"article found, and reports headline, author, date and press photos.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.newsgrab/config.yaml)")
}

// openStores opens the archive and the run history named by cfg.
func openStores(c *config.Config) (*archive.Archive, *runs.Store, error) {
	a, err := archive.New(c.Storage.ArchiveDir)
	if err != nil {
		return nil, nil, err
	}
	r, err := runs.NewStore(c.Storage.RunsDSN)
	if err != nil {
		return nil, nil, err
	}
	return a, r, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
