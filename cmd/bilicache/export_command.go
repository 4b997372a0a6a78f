package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bilicache/internal/cache"
	"bilicache/internal/config"
	"bilicache/internal/export"
	"bilicache/internal/preflight"
	"bilicache/internal/services/ffmpeg"
)

func newExportCommand(cmdCtx *commandContext) *cobra.Command {
	var rootFlags []string
	var allFlag bool
	var qualityFlag int
	var outputFlag string
	var overwriteFlag bool
	var dryRunFlag bool
	var coversFlag bool

	cmd := &cobra.Command{
		Use:   "export [entry number]...",
		Short: "Remux cached downloads into playable containers",
		Long: `Export remuxes cached segments through ffmpeg into the output directory.
Entry numbers refer to the listing printed by "bilicache scan". With --all,
every entry with an exportable variant is selected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !allFlag {
				return fmt.Errorf("select entries by number (see `bilicache scan`) or pass --all")
			}
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			if outputFlag != "" {
				expanded, err := config.ExpandPath(outputFlag)
				if err != nil {
					return err
				}
				cfg.Paths.OutputDir = expanded
			}
			if overwriteFlag {
				cfg.Export.OverwriteExisting = true
			}
			if cmd.Flags().Changed("covers") {
				cfg.Export.Covers = coversFlag
			}

			inv, err := runScan(cmd, cmdCtx, rootFlags)
			if err != nil {
				return err
			}
			selections, err := selectEntries(inv, args, allFlag, qualityFlag)
			if err != nil {
				return err
			}

			plan, err := export.NewPlanner(cfg).Build(selections)
			if err != nil {
				return err
			}
			if dryRunFlag {
				printPlan(cmd, plan)
				return nil
			}

			results, ok := preflight.Run(cfg, plan.EstimatedBytes)
			if !ok {
				for _, result := range results {
					if !result.Passed {
						fmt.Fprintf(cmd.ErrOrStderr(), "preflight: %s: %s\n", result.Name, result.Detail)
					}
				}
				return fmt.Errorf("preflight checks failed")
			}

			return runBatch(cmd, cmdCtx, plan)
		},
	}

	cmd.Flags().StringArrayVar(&rootFlags, "root", nil, "Scan this download root instead of autodiscovery (repeatable)")
	cmd.Flags().BoolVar(&allFlag, "all", false, "Export every entry with an exportable variant")
	cmd.Flags().IntVar(&qualityFlag, "quality", 0, "Pin a quality id instead of the best available")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Override the output directory")
	cmd.Flags().BoolVar(&overwriteFlag, "overwrite", false, "Overwrite existing files instead of adding a suffix")
	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Print the plan without exporting")
	cmd.Flags().BoolVar(&coversFlag, "covers", true, "Copy cover images beside exported files")
	return cmd
}

// selectEntries maps scan-listing numbers (or --all) onto plan selections.
func selectEntries(inv *cache.Inventory, args []string, all bool, qualityID int) ([]export.Selection, error) {
	var entries []*cache.Entry
	if all {
		entries = inv.CompleteEntries()
		if len(entries) == 0 {
			return nil, fmt.Errorf("no exportable entries found")
		}
	} else {
		indexes, err := parseIndexArgs(args, len(inv.Entries))
		if err != nil {
			return nil, err
		}
		for _, idx := range indexes {
			entries = append(entries, inv.Entries[idx])
		}
	}

	selections := make([]export.Selection, 0, len(entries))
	for _, entry := range entries {
		sel := export.Selection{Entry: entry}
		if qualityID > 0 {
			variant := variantByQuality(entry, qualityID)
			if variant == nil {
				return nil, fmt.Errorf("%s: no cached variant with quality %d", entry.DisplayTitle(), qualityID)
			}
			sel.Variant = variant
		}
		selections = append(selections, sel)
	}
	return selections, nil
}

func variantByQuality(entry *cache.Entry, qualityID int) *cache.Variant {
	for _, variant := range entry.Variants {
		if variant.QualityID == qualityID {
			return variant
		}
	}
	return nil
}

func printPlan(cmd *cobra.Command, plan *export.Plan) {
	rows := make([][]string, 0, len(plan.Jobs))
	for i, job := range plan.Jobs {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			truncate(job.Title, 50),
			job.QualityLabel,
			job.DestPath,
		})
	}
	writeTable(cmd.OutOrStdout(), []column{
		{title: "#", numeric: true},
		{title: "Title"},
		{title: "Quality"},
		{title: "Destination"},
	}, rows)
	fmt.Fprintf(cmd.OutOrStdout(), "%d job(s), about %s\n",
		len(plan.Jobs), cache.FormatSize(plan.EstimatedBytes))
}

func runBatch(cmd *cobra.Command, cmdCtx *commandContext, plan *export.Plan) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := cmdCtx.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := ffmpeg.New(cfg.FFmpegBinary(), cfg.FFmpeg.RemuxTimeout)
	if err != nil {
		return err
	}

	coordinator := export.NewCoordinator(cfg, store, export.NewRemuxer(cfg, client, logger), logger)
	out := cmd.OutOrStdout()
	summary, runErr := coordinator.Run(ctx, plan, func(result export.Result) {
		if result.Err != nil {
			fmt.Fprintf(out, "FAIL %s (%s): %v\n", result.Job.Title, result.Job.ErrorReason, result.Err)
			return
		}
		fmt.Fprintf(out, "OK   %s -> %s\n", result.Job.Title, result.Job.DestPath)
	})

	fmt.Fprintf(out, "\n%d exported, %d failed, %d skipped (batch %s)\n",
		summary.Completed, summary.Failed, summary.Skipped, summary.BatchID)

	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		return fmt.Errorf("export finished with %d failure(s); see `bilicache jobs`", summary.Failed)
	}
	return nil
}
