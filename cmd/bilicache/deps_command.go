package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bilicache/internal/deps"
)

func newDepsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the external binaries bilicache uses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			statuses, ok := deps.Check(cfg)

			rows := make([][]string, 0, len(statuses))
			for _, status := range statuses {
				location := status.Path
				if !status.Found {
					location = "not found"
				}
				rows = append(rows, []string{
					status.Requirement.Name,
					yesNo(status.Requirement.Required),
					yesNo(status.Found),
					location,
					status.Requirement.Purpose,
				})
			}
			writeTable(cmd.OutOrStdout(), []column{
				{title: "Binary"},
				{title: "Required"},
				{title: "Found"},
				{title: "Location"},
				{title: "Purpose"},
			}, rows)

			if !ok {
				return fmt.Errorf("required binaries missing")
			}
			return nil
		},
	}
}
