package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"protocol-extractor/pkg/config"
	"protocol-extractor/pkg/progress"
)

var progressFlags struct {
	configPath string
}

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "List checkpointed extraction jobs",
	RunE: func(*cobra.Command, []string) error {
		cfg, err := config.Load(progressFlags.configPath)
		if err != nil {
			return err
		}
		jobs, err := progress.List(cfg.ProgressDir)
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Println("no checkpointed jobs")
			return nil
		}
		for _, job := range jobs {
			h := job.Header
			fmt.Printf("%s  period %d  %d/%d completed, %d failed  %s  %s\n",
				h.JobID, h.Period, h.CompletedCount, h.TotalExpected,
				h.FailedCount, h.Status, h.LastUpdate.Format("2006-01-02 15:04"))
			fmt.Printf("    resume with: protokoll extract --resume %s\n", job.Path)
		}
		return nil
	},
}

func init() {
	progressCmd.Flags().StringVarP(&progressFlags.configPath, "config", "c", "", "job configuration file")
}
