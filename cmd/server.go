package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/arjn/leetrack/internal/config"
	"github.com/arjn/leetrack/internal/leetcode"
	"github.com/arjn/leetrack/internal/logger"
	"github.com/arjn/leetrack/internal/notify"
	resendnotify "github.com/arjn/leetrack/internal/notify/resend"
	"github.com/arjn/leetrack/internal/refresh"
	"github.com/arjn/leetrack/internal/server"
	"github.com/arjn/leetrack/internal/storage/bolt"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server and the refresh scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		return startServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

func startServer() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error loading config file: %w", err)
	}

	if cfg.LogJSON {
		logger.InitJSON(slog.LevelInfo)
	} else {
		logger.Init(slog.LevelInfo)
	}

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
	detector := notify.NewService(store, newNotifier(cfg))

	ctx := context.Background()
	scheduler := refresh.NewScheduler(refresher, func(ctx context.Context) {
		if _, err := detector.Run(ctx); err != nil {
			logger.Error("Inactivity check failed", "error", err)
		}
	}, cfg.Refresh.DailyAt)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	srv := server.New(store, refresher, detector)
	logger.Info("Starting HTTP server", "addr", cfg.ListenAddr)
	return http.ListenAndServe(cfg.ListenAddr, srv.Router())
}

func newNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Notify.ResendAPIKey == "" {
		logger.Warn("No resend API key configured, inactivity alerts will only be logged")
		return &notify.LogNotifier{}
	}
	return &resendnotify.ResendNotifier{
		ApiKey: cfg.Notify.ResendAPIKey,
		From:   cfg.Notify.From,
	}
}
