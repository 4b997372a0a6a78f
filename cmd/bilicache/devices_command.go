package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bilicache/internal/cache"
	"bilicache/internal/devicemon"
)

func newDevicesCommand(cmdCtx *commandContext) *cobra.Command {
	var watchFlag bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Show discovered download roots",
		Long: `Devices lists every mounted download root bilicache would scan. With
--watch it keeps running and re-checks whenever a storage device is added
or removed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			printRoots := func() {
				roots := cache.DiscoverRoots(cfg.Scan.Packages, cfg.Scan.ExtraRoots)
				if len(roots) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No download roots found.")
					return
				}
				for _, root := range roots {
					fmt.Fprintln(cmd.OutOrStdout(), root)
				}
			}
			printRoots()

			if !watchFlag {
				return nil
			}

			logger, err := cmdCtx.ensureLogger()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			monitor := devicemon.New(logger, func(_ context.Context, event devicemon.Event) {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %s\n", event.Action, event.DevName)
				printRoots()
			})
			if err := monitor.Start(ctx); err != nil {
				return err
			}
			defer monitor.Stop()

			fmt.Fprintln(cmd.OutOrStdout(), "\nWatching for storage devices; press Ctrl-C to stop.")
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVar(&watchFlag, "watch", false, "Keep watching for device changes")
	return cmd
}
