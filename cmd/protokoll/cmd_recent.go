package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"protocol-extractor/pkg/archive"
	"protocol-extractor/pkg/config"
	"protocol-extractor/pkg/discovery"
)

var recentFlags struct {
	configPath string
	limit      int
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List protocols announced in the publication feed",
	Long: "recent reads the archive's RSS feed of newly published plenary\n" +
		"protocols, a lighter check than paging the full listing.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(recentFlags.configPath)
		if err != nil {
			return err
		}
		if cfg.FeedURL == "" {
			return fmt.Errorf("no feed_url configured")
		}

		client := archive.NewClient(archive.Config{
			Profile:      archive.PlainProfile,
			MaxRetries:   cfg.MaxRetries,
			RetryDelay:   time.Second,
			RequestsPerS: cfg.RequestsPerSecond,
			Timeout:      30 * time.Second,
		}, nil)
		feed := discovery.NewFeedSource(client, cfg.FeedURL)
		protocols, err := feed.Recent(cmd.Context())
		if err != nil {
			return err
		}
		if len(protocols) == 0 {
			fmt.Println("no protocols in feed")
			return nil
		}
		if recentFlags.limit > 0 && len(protocols) > recentFlags.limit {
			protocols = protocols[:recentFlags.limit]
		}
		for _, p := range protocols {
			date := ""
			if !p.Date.IsZero() {
				date = p.Date.Format("2006-01-02")
			}
			fmt.Printf("%-8s %-10s %s\n", p.Number, date, p.Title)
		}
		return nil
	},
}

func init() {
	f := recentCmd.Flags()
	f.StringVarP(&recentFlags.configPath, "config", "c", "", "job configuration file")
	f.IntVar(&recentFlags.limit, "limit", 0, "show at most N entries")
}
