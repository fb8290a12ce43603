package cmd

import (
	"github.com/spf13/cobra"

	"github.com/arjn/leetrack/pkg/versioninfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("leetrack %s (built %s)\n", versioninfo.Version, versioninfo.BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
