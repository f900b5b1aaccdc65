package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kasuganosora/videx/pkg/catalog"
	"github.com/kasuganosora/videx/pkg/domain"
)

func registerLoadCmd(rootCmd *cobra.Command, a *app) {
	loadCmd := &cobra.Command{
		Use:   "load FILE",
		Short: "Load a catalog snapshot (JSON or YAML) into the configured catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := catalog.ReadSnapshot(args[0])
			if err != nil {
				return err
			}

			cat, err := a.openCatalog(cmd)
			if err != nil {
				return err
			}
			defer cat.Close()

			if err := snap.Load(cmd.Context(), cat); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d relations, %d column statistics, %d extended statistics\n",
				len(snap.Relations), len(snap.ColumnStats), len(snap.ExtendedStats))
			return nil
		},
	}
	rootCmd.AddCommand(loadCmd)
}

func registerDumpCmd(rootCmd *cobra.Command, a *app) {
	dumpCmd := &cobra.Command{
		Use:   "dump REL...",
		Short: "Write relations and their statistics as a YAML snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.openCatalog(cmd)
			if err != nil {
				return err
			}
			defer cat.Close()

			ctx := cmd.Context()
			oids := make([]domain.Oid, 0, len(args))
			for _, ref := range args {
				rel, err := resolveRelation(ctx, cat, ref)
				if err != nil {
					return err
				}
				oids = append(oids, rel.Oid)
			}

			snap, err := catalog.Dump(ctx, cat, oids...)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(snap); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	rootCmd.AddCommand(dumpCmd)
}
