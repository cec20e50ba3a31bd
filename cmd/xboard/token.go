package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-presence/internal/auth/token"
	"github.com/creamcroissant/xboard-presence/internal/bootstrap"
)

func init() {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Access token utilities",
	}

	var sessionID string
	var admin bool
	issueCmd := &cobra.Command{
		Use:   "issue <user_id>",
		Short: "Issue an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserIDArg(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, db, cfg, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			key, _, err := bootstrap.ResolveSigningKey(ctx, store.Settings(), cfg.Auth.SigningKey, time.Now)
			if err != nil {
				return err
			}
			mgr, err := token.NewManager(token.Options{
				SigningKey: []byte(key),
				Issuer:     cfg.Auth.Issuer,
				Audience:   cfg.Auth.Audience,
				TTL:        cfg.Auth.TokenTTL,
				Leeway:     cfg.Auth.Leeway,
			})
			if err != nil {
				return err
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			signed, claims, err := mgr.IssueForUser(userID, sessionID, admin)
			if err != nil {
				return err
			}
			result := map[string]any{
				"token":      signed,
				"session_id": claims.SessionID,
				"expires_at": claims.ExpiresAt.Unix(),
			}
			return printResult(cmd.OutOrStdout(), result, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Token:\t%s\n", signed)
				fmt.Fprintf(tw, "Session:\t%s\n", claims.SessionID)
				fmt.Fprintf(tw, "Expires:\t%s\n", claims.ExpiresAt.Time.Format(time.RFC3339))
			})
		},
	}
	issueCmd.Flags().StringVar(&sessionID, "session", "", "Session id (random when empty)")
	issueCmd.Flags().BoolVar(&admin, "admin", false, "Mark the token as admin")
	tokenCmd.AddCommand(issueCmd)

	rootCmd.AddCommand(tokenCmd)
}
