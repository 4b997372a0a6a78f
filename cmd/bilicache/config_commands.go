package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bilicache/internal/config"
)

func newConfigCommand(cmdCtx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(cmdCtx))
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "output_dir     %s\n", cfg.Paths.OutputDir)
			fmt.Fprintf(out, "staging_dir    %s\n", cfg.Paths.StagingDir)
			fmt.Fprintf(out, "log_dir        %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "packages       %s\n", strings.Join(cfg.Scan.Packages, ", "))
			if len(cfg.Scan.ExtraRoots) > 0 {
				fmt.Fprintf(out, "extra_roots    %s\n", strings.Join(cfg.Scan.ExtraRoots, ", "))
			}
			fmt.Fprintf(out, "max_depth      %d\n", cfg.Scan.MaxDepth)
			fmt.Fprintf(out, "ffmpeg         %s\n", cfg.FFmpegBinary())
			fmt.Fprintf(out, "remux_timeout  %ds\n", cfg.FFmpeg.RemuxTimeout)
			fmt.Fprintf(out, "container      %s\n", cfg.FFmpeg.Container)
			fmt.Fprintf(out, "workers        %d\n", cfg.Export.Workers)
			fmt.Fprintf(out, "overwrite      %s\n", yesNo(cfg.Export.OverwriteExisting))
			fmt.Fprintf(out, "covers         %s\n", yesNo(cfg.Export.Covers))
			fmt.Fprintf(out, "min_free_mib   %d\n", cfg.Export.MinFreeMiB)
			fmt.Fprintf(out, "log_format     %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "log_level      %s\n", cfg.Logging.Level)
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
