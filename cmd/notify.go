package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/arjn/leetrack/internal/config"
	"github.com/arjn/leetrack/internal/logger"
	"github.com/arjn/leetrack/internal/notify"
	"github.com/arjn/leetrack/internal/storage/bolt"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Run one inactivity detection pass and email inactive students",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("error loading config file: %w", err)
		}
		logger.Init(slog.LevelInfo)

		store, err := bolt.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer store.Close()

		detected, err := notify.NewService(store, newNotifier(cfg)).Run(cmd.Context())
		if err != nil {
			return err
		}
		for _, entry := range detected {
			cmd.Printf("%s: %d days inactive\n", entry.Username, entry.DaysInactive)
		}
		cmd.Printf("%d inactive student(s)\n", len(detected))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)
}
