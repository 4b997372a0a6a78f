package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bilicache/internal/queue"
)

func newJobsCommand(cmdCtx *commandContext) *cobra.Command {
	var statusFlag string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Show export job history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			var statuses []queue.Status
			if statusFlag != "" {
				statuses = append(statuses, queue.Status(statusFlag))
			}
			jobs, err := store.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printJobsJSON(cmd, jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No export jobs recorded.")
				return nil
			}

			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				detail := job.DestPath
				if job.Status == queue.StatusFailed {
					detail = fmt.Sprintf("%s: %s", job.ErrorReason, truncate(job.ErrorDetail, 60))
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", job.ID),
					truncate(job.Title, 40),
					job.QualityLabel,
					string(job.Status),
					job.UpdatedAt.Local().Format(time.DateTime),
					detail,
				})
			}
			writeTable(cmd.OutOrStdout(), []column{
				{title: "ID", numeric: true},
				{title: "Title"},
				{title: "Quality"},
				{title: "Status"},
				{title: "Updated"},
				{title: "Detail"},
			}, rows)

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d total: %d completed, %d failed, %d pending, %d running\n",
				stats.Total(), stats.Completed, stats.Failed, stats.Pending, stats.Running)
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show jobs with this status (pending, running, completed, failed)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit jobs as JSON")

	cmd.AddCommand(newJobsClearCommand(cmdCtx))
	cmd.AddCommand(newJobsResetCommand(cmdCtx))
	return cmd
}

type jobJSON struct {
	ID          int64  `json:"id"`
	BatchID     string `json:"batch_id"`
	Title       string `json:"title"`
	BVID        string `json:"bvid,omitempty"`
	Quality     string `json:"quality,omitempty"`
	DestPath    string `json:"dest_path"`
	Status      string `json:"status"`
	ErrorReason string `json:"error_reason,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func printJobsJSON(cmd *cobra.Command, jobs []*queue.Job) error {
	payload := make([]jobJSON, 0, len(jobs))
	for _, job := range jobs {
		payload = append(payload, jobJSON{
			ID:          job.ID,
			BatchID:     job.BatchID,
			Title:       job.Title,
			BVID:        job.BVID,
			Quality:     job.QualityLabel,
			DestPath:    job.DestPath,
			Status:      string(job.Status),
			ErrorReason: job.ErrorReason,
			ErrorDetail: job.ErrorDetail,
			CreatedAt:   job.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:   job.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func newJobsClearCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove completed and failed jobs from history",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.ClearCompleted(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job(s).\n", removed)
			return nil
		},
	}
}

func newJobsResetCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Mark jobs stuck in the running state as failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cmdCtx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			reset, err := store.ResetStuckRunning(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d job(s).\n", reset)
			return nil
		},
	}
}
