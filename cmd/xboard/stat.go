package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-presence/internal/cache"
	"github.com/creamcroissant/xboard-presence/internal/presence"
	"github.com/creamcroissant/xboard-presence/internal/service"
	"github.com/creamcroissant/xboard-presence/internal/support/logging"
)

func init() {
	statCmd := &cobra.Command{
		Use:   "stat",
		Short: "Traffic statistics",
	}

	statCmd.AddCommand(&cobra.Command{
		Use:   "traffic <user_id>",
		Short: "Show this month's traffic log of a user",
		Long: `Show this month's traffic records of a user with node names resolved.
Device columns only reflect presence held by this process; query a running server with "presence devices" for live data.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, db, cfg, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			logOpts := logging.FromConfig(cfg.Log)
			logOpts.Output = cmd.ErrOrStderr()
			logOpts.Level = slog.LevelWarn
			logger := logging.New(logOpts)

			types := cfg.Presence.NodeTypes
			if len(types) == 0 {
				types = presence.DefaultNodeTypes
			}
			presenceStore := presence.NewStore(cache.NewStore(cache.Options{}), cfg.Presence.CachePrefix, logger)
			modes := service.NewDeviceModeResolver(store.Settings(), cfg.Presence.DeviceLimitMode)
			online := service.NewUserOnlineService(presenceStore, presence.NewRegistry(types...), modes, store.Users(), logger)
			stats := service.NewUserStatService(store.StatUsers(), store.Servers(), online, service.UserStatOptions{
				Location:   cfg.App.Location(),
				HideUserID: cfg.HiddenFeatures.EnableExposedUserCountFix,
			}, logger)

			entries, err := stats.TrafficLogs(ctx, args[0])
			if err != nil {
				return err
			}
			loc := cfg.App.Location()
			return printResult(cmd.OutOrStdout(), map[string]any{"data": entries}, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "Date\tNode\tUpload\tDownload\tRate")
				for _, e := range entries {
					node := "-"
					if e.ServerName != nil {
						node = *e.ServerName
					}
					date := "-"
					if e.DisplayAt > 0 {
						date = unixIn(e.DisplayAt, loc)
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\n", date, node, formatBytes(e.Upload), formatBytes(e.Download), e.ServerRate)
				}
			})
		},
	})

	rootCmd.AddCommand(statCmd)
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
