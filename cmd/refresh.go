package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/arjn/leetrack/internal/config"
	"github.com/arjn/leetrack/internal/leetcode"
	"github.com/arjn/leetrack/internal/logger"
	"github.com/arjn/leetrack/internal/refresh"
	"github.com/arjn/leetrack/internal/storage/bolt"
)

var refreshUser string

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Scrape LeetCode and update activity records once, then exit",
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

		client := leetcode.New(cfg.Upstream.BaseURL, leetcode.Options{
			Timeout:     cfg.Upstream.Timeout(),
			Retries:     cfg.Upstream.Retries,
			CacheSizeMB: cfg.Upstream.CacheSizeMB,
			CacheTTL:    cfg.Upstream.CacheTTL(),
		})
		refresher := refresh.NewRefresher(store, client, cfg.Refresh.Concurrency)

		ctx := cmd.Context()
		if refreshUser != "" {
			if err := refresher.RefreshUser(ctx, refreshUser); err != nil {
				return fmt.Errorf("refreshing %s: %w", refreshUser, err)
			}
			cmd.Printf("Refreshed %s\n", refreshUser)
			return nil
		}

		summary, err := refresher.RefreshAll(ctx)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(out))
		return nil
	},
}

func init() {
	refreshCmd.Flags().StringVar(&refreshUser, "user", "", "refresh a single username instead of the whole cohort")
	rootCmd.AddCommand(refreshCmd)
}
