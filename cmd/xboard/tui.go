package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-presence/internal/tui"
)

func init() {
	var users []int64
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch interactive presence monitor",
		Long:  "Launch a terminal UI that polls a running server for the online devices of the given users.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(users) == 0 {
				return fmt.Errorf("at least one user id is required (--users 1,2,3)")
			}
			for _, id := range users {
				if id <= 0 {
					return fmt.Errorf("invalid user ID %d", id)
				}
			}
			c, err := dialPresence()
			if err != nil {
				return err
			}
			defer c.Close()

			p := tea.NewProgram(
				tui.NewModel(c, users),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run tui: %w", err)
			}
			return nil
		},
	}
	tuiCmd.Flags().Int64SliceVar(&users, "users", nil, "User ids to watch")
	tuiCmd.Flags().StringVar(&grpcAddr, "addr", "", "PresenceService address (defaults to grpc.addr)")
	tuiCmd.Flags().StringVar(&grpcToken, "token", "", "PresenceService bearer token (defaults to grpc.token)")
	rootCmd.AddCommand(tuiCmd)
}
