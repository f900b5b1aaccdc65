package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kasuganosora/videx/pkg/relcache"
	"github.com/kasuganosora/videx/pkg/statsync"
)

func registerSyncCmd(rootCmd *cobra.Command, a *app) {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy statistics from a source relation onto a virtual relation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcRef, _ := cmd.Flags().GetString("src")
			dstRef, _ := cmd.Flags().GetString("dst")

			cat, err := a.openCatalog(cmd)
			if err != nil {
				return err
			}
			defer cat.Close()

			ctx := cmd.Context()
			src, err := resolveRelation(ctx, cat, srcRef)
			if err != nil {
				return fmt.Errorf("source: %w", err)
			}
			dst, err := resolveRelation(ctx, cat, dstRef)
			if err != nil {
				return fmt.Errorf("target: %w", err)
			}

			// 估算与同步共用一个缓存，同步提交后目标表的缓存失效
			showEstimate, _ := cmd.Flags().GetBool("estimate")
			cache := relcache.New(cat, a.cfg.Cache.TTL)
			am := a.accessMethod(cache)
			if showEstimate {
				if err := printEstimate(cmd, am, dst, nil, "before "); err != nil {
					return err
				}
			}

			engine := statsync.NewEngine(cat, statsync.WithInvalidator(cache), statsync.WithLogger(a.logger))
			res, err := engine.Analyze(ctx, src.Oid, dst.Oid)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "synced %s -> %s: columns updated=%d inserted=%d, extended deleted=%d inserted=%d",
				src.Name, dst.Name, res.ColumnsUpdated, res.ColumnsInserted, res.ExtDeleted, res.ExtInserted)
			if len(res.ExtNames) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " [%s]", strings.Join(res.ExtNames, ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout())

			if showEstimate {
				return printEstimate(cmd, am, dst, nil, "after ")
			}
			return nil
		},
	}
	syncCmd.Flags().String("src", "", "source relation (oid or schema.table)")
	syncCmd.Flags().String("dst", "", "target virtual relation (oid or schema.table)")
	syncCmd.Flags().Bool("estimate", false, "print the target's size estimate before and after the copy")
	_ = syncCmd.MarkFlagRequired("src")
	_ = syncCmd.MarkFlagRequired("dst")

	rootCmd.AddCommand(syncCmd)
}
