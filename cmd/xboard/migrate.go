package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-presence/internal/bootstrap"
	"github.com/creamcroissant/xboard-presence/internal/migrations"
)

func init() {
	migrateCmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Database migration management",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := bootstrap.OpenSQLite(cmd.Context(), cfg.DB.Path, bootstrap.OpenOptions{})
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Using DB path: %s\n", cfg.DB.Path)

			action := "up"
			if len(args) > 0 {
				action = args[0]
			}
			switch action {
			case "up":
				return migrations.Up(db)
			case "down":
				return migrations.Down(db)
			default:
				return migrations.Status(db)
			}
		},
	}
	rootCmd.AddCommand(migrateCmd)
}
