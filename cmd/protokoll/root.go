package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "protokoll",
	Short: "Extract parliamentary speeches from plenary protocols",
	Long: "protokoll downloads plenary protocol documents from the archive,\n" +
		"extracts individual speeches through a tiered strategy pipeline and\n" +
		"labels every speech with how it was obtained.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(recentCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
