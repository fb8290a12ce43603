package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "leetrack",
	Short: "Track LeetCode activity for a cohort of students",
	Long: `
	Leetrack scrapes LeetCode profiles for a cohort of students, keeps per-day
	solve snapshots and streak records, and serves leaderboards, analytics and
	inactivity alerts over HTTP.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
}
