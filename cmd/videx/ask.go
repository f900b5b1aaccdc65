package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kasuganosora/videx/pkg/hook"
	"github.com/kasuganosora/videx/pkg/protocol"
	"github.com/kasuganosora/videx/pkg/remote"
)

func registerAskCmd(rootCmd *cobra.Command, a *app) {
	askCmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask the statistics server for the statistics of one column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _ := cmd.Flags().GetString("db")
			schema, _ := cmd.Flags().GetString("schema")
			table, _ := cmd.Flags().GetString("table")
			column, _ := cmd.Flags().GetString("column")
			if db == "" {
				db = a.cfg.Catalog.Database
			}

			cfg := a.cfg.Remote
			if cmd.Flags().Changed("server") {
				cfg.Server, _ = cmd.Flags().GetString("server")
			}
			client, err := remote.NewClient(cfg, remote.WithLogger(a.logger))
			if err != nil {
				return err
			}

			req := protocol.NewRequest(db, schema, table, hook.RelationStatsFunction, "")
			req.Create(hook.ColumnNameItem).AddProperty("name", column)
			a.logger.Debug("request: %s", req.ToJSON())

			resp, err := client.Ask(cmd.Context(), req)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(resp.Data))
			for k := range resp.Data {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, resp.Data[k])
			}
			return nil
		},
	}
	askCmd.Flags().String("server", "", "statistics server address (overrides config and $"+remote.ServerEnv+")")
	askCmd.Flags().String("db", "", "database name (defaults to the configured database)")
	askCmd.Flags().String("schema", "public", "schema name")
	askCmd.Flags().String("table", "", "table name")
	askCmd.Flags().String("column", "", "column name")
	_ = askCmd.MarkFlagRequired("table")
	_ = askCmd.MarkFlagRequired("column")

	rootCmd.AddCommand(askCmd)
}
