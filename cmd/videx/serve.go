package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kasuganosora/videx/server/askvidex"
)

func registerServeCmd(rootCmd *cobra.Command, a *app) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve statistics from the catalog over POST /ask_videx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host, _ = cmd.Flags().GetString("host")
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			grace, _ := cmd.Flags().GetDuration("shutdown-grace-period")

			cat, err := a.openCatalog(cmd)
			if err != nil {
				return err
			}
			defer cat.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := askvidex.NewServer(a.cfg.GetListenAddress(), cat, a.logger)
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("statistics server exited: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("服务器停止")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}
	serveCmd.Flags().String("host", "", "listen host (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	serveCmd.Flags().Duration("shutdown-grace-period", 10*time.Second, "time to finish in-flight requests on shutdown")

	rootCmd.AddCommand(serveCmd)
}
