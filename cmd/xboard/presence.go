package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/xboard-presence/internal/config"
	"github.com/creamcroissant/xboard-presence/internal/grpc/client"
	"github.com/creamcroissant/xboard-presence/internal/presence"
)

var (
	grpcAddr  string
	grpcToken string
)

func init() {
	presenceCmd := &cobra.Command{
		Use:   "presence",
		Short: "Query online devices from a running server",
		Long:  `Query the PresenceService of a running "xboard serve" over gRPC.`,
	}
	presenceCmd.PersistentFlags().StringVar(&grpcAddr, "addr", "", "PresenceService address (defaults to grpc.addr)")
	presenceCmd.PersistentFlags().StringVar(&grpcToken, "token", "", "PresenceService bearer token (defaults to grpc.token)")

	presenceCmd.AddCommand(&cobra.Command{
		Use:   "devices <user_id>",
		Short: "List the online devices of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseUserIDArg(args[0])
			if err != nil {
				return err
			}
			c, err := dialPresence()
			if err != nil {
				return err
			}
			defer c.Close()

			total, devices, err := c.UserDevices(cmd.Context(), userID)
			if err != nil {
				return err
			}
			type deviceView struct {
				IP       string  `json:"ip"`
				NodeType string  `json:"node_type"`
				NodeID   *int64  `json:"node_id"`
				NodeKey  *string `json:"node_key"`
				LastSeen int64   `json:"last_seen"`
			}
			views := make([]deviceView, 0, len(devices))
			for _, d := range devices {
				v := deviceView{IP: d.IP, NodeType: d.NodeType, LastSeen: d.LastSeen}
				if d.NodeID > 0 {
					id := d.NodeID
					v.NodeID = &id
				}
				if d.NodeKey != "" {
					key := d.NodeKey
					v.NodeKey = &key
				}
				views = append(views, v)
			}
			result := map[string]any{"total_count": total, "devices": views}
			return printResult(cmd.OutOrStdout(), result, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "Total: %d\n", total)
				fmt.Fprintln(tw, "IP\tNode\tType\tLast seen")
				for _, d := range devices {
					node := d.NodeKey
					if node == "" {
						node = "-"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.IP, node, d.NodeType, formatUnix(d.LastSeen))
				}
			})
		},
	})

	presenceCmd.AddCommand(&cobra.Command{
		Use:   "count <user_id>...",
		Short: "Show online device counts for users",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseUserIDArg(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			c, err := dialPresence()
			if err != nil {
				return err
			}
			defer c.Close()

			counts, err := c.OnlineCounts(cmd.Context(), ids)
			if err != nil {
				return err
			}
			keyed := make(map[string]int, len(counts))
			for id, n := range counts {
				keyed[strconv.FormatInt(id, 10)] = n
			}
			return printResult(cmd.OutOrStdout(), keyed, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "User\tOnline")
				for _, id := range ids {
					fmt.Fprintf(tw, "%d\t%d\n", id, counts[id])
				}
			})
		},
	})

	var nodeTypes []string
	decodeCmd := &cobra.Command{
		Use:   "decode <node_key>",
		Short: "Decode a node key such as vmess12 into type and id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := presence.DefaultRegistry()
			if len(nodeTypes) > 0 {
				registry = presence.NewRegistry(nodeTypes...)
			}
			key, ok := registry.Decode(args[0])
			if !ok {
				return fmt.Errorf("node key %q does not match any known node type", args[0])
			}
			result := map[string]any{"type": key.Type, "id": key.ID, "node_key": key.String()}
			return printResult(cmd.OutOrStdout(), result, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "Type\tID\tKey")
				fmt.Fprintf(tw, "%s\t%d\t%s\n", key.Type, key.ID, key.String())
			})
		},
	}
	decodeCmd.Flags().StringSliceVar(&nodeTypes, "types", nil, "Known node types (defaults to the built-in list)")
	presenceCmd.AddCommand(decodeCmd)

	rootCmd.AddCommand(presenceCmd)
}

func dialPresence() (*client.PresenceClient, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return client.NewPresenceClient(presenceClientConfig(cfg))
}

func presenceClientConfig(cfg *config.Config) client.Config {
	addr := strings.TrimSpace(grpcAddr)
	if addr == "" {
		addr = cfg.GRPC.Addr
	}
	token := strings.TrimSpace(grpcToken)
	if token == "" {
		token = cfg.GRPC.Token
	}
	out := client.Config{Address: addr, Token: token}
	if cfg.GRPC.TLS.Enabled {
		out.TLS = &client.TLSConfig{Enabled: true}
	}
	return out
}

func parseUserIDArg(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user ID %q", raw)
	}
	return id, nil
}

func formatUnix(ts int64) string {
	if ts <= 0 {
		return "-"
	}
	return time.Unix(ts, 0).Format(time.DateTime)
}

func unixIn(ts int64, loc *time.Location) string {
	return time.Unix(ts, 0).In(loc).Format(time.DateTime)
}
