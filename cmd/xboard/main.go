package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-presence/internal/config"
)

// Build info - injected via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	configPath   string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:           "xboard",
	Short:         "XBoard presence service",
	Long:          `XBoard tracks which devices each user has online across proxy nodes and serves the counts to nodes and users.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json or yaml")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "XBoard presence %s\n", Version)
			fmt.Fprintf(out, "Commit: %s\n", Commit)
			fmt.Fprintf(out, "Build Time: %s\n", BuildTime)
		},
	})
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
