package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bilicache/internal/cache"
)

func newScanCommand(cmdCtx *commandContext) *cobra.Command {
	var rootFlags []string
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover cached downloads and report their state",
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := runScan(cmd, cmdCtx, rootFlags)
			if err != nil {
				return err
			}
			if jsonFlag {
				return printInventoryJSON(cmd, inv)
			}
			printInventory(cmd, inv)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&rootFlags, "root", nil, "Scan this download root instead of autodiscovery (repeatable)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit the inventory as JSON")
	return cmd
}

func runScan(cmd *cobra.Command, cmdCtx *commandContext, rootFlags []string) (*cache.Inventory, error) {
	roots, err := cmdCtx.scanRoots(rootFlags)
	if err != nil {
		return nil, err
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("no download roots found; connect a device, mount its storage, or pass --root")
	}
	scanner, err := cmdCtx.newScanner(roots)
	if err != nil {
		return nil, err
	}
	return scanner.Scan(cmd.Context())
}

func printInventory(cmd *cobra.Command, inv *cache.Inventory) {
	out := cmd.OutOrStdout()
	if len(inv.Entries) == 0 {
		fmt.Fprintln(out, "No cached downloads found.")
	} else {
		rows := make([][]string, 0, len(inv.Entries))
		for i, entry := range inv.Entries {
			rows = append(rows, inventoryRow(i+1, entry))
		}
		columns := []column{
			{title: "#", numeric: true},
			{title: "Title"},
			{title: "BV"},
			{title: "Quality"},
			{title: "Resolution"},
			{title: "Size", numeric: true},
			{title: "State"},
		}
		if stdoutIsTTY() {
			writeTable(out, columns, rows)
		} else {
			// Plain rows pipe cleanly into cut/awk.
			headers := make([]string, len(columns))
			for i, col := range columns {
				headers[i] = col.title
			}
			fmt.Fprintln(out, strings.Join(headers, "\t"))
			for _, row := range rows {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
		}
	}

	for _, failure := range inv.Failures {
		fmt.Fprintf(out, "skipped: %s\n", failure)
	}
	if len(inv.Warnings) > 0 {
		fmt.Fprintf(out, "%d path(s) could not be read; run with --json for details\n", len(inv.Warnings))
	}
}

func inventoryRow(index int, entry *cache.Entry) []string {
	quality, resolution, size := "-", "-", "-"
	state := string(entry.State)

	variant := entry.BestVariant()
	if variant == nil && len(entry.Variants) > 0 {
		variant = entry.Variants[0]
		if variant.StateReason != "" {
			state = fmt.Sprintf("%s (%s)", entry.State, variant.StateReason)
		}
	}
	if variant != nil {
		quality = variant.QualityLabel
		if variant.Width > 0 && variant.Height > 0 {
			resolution = fmt.Sprintf("%dx%d", variant.Width, variant.Height)
		}
		size = cache.FormatSize(variant.TotalBytes())
	}

	return []string{
		fmt.Sprintf("%d", index),
		truncate(entry.DisplayTitle(), 60),
		entry.BVID,
		quality,
		resolution,
		size,
		state,
	}
}

type inventoryJSON struct {
	Roots    []string             `json:"roots"`
	Entries  []entryJSON          `json:"entries"`
	Failures []cache.ParseFailure `json:"failures,omitempty"`
	Warnings []cache.ScanWarning  `json:"warnings,omitempty"`
}

type entryJSON struct {
	Title    string        `json:"title"`
	Part     string        `json:"part,omitempty"`
	BVID     string        `json:"bvid,omitempty"`
	AVID     int64         `json:"avid,omitempty"`
	Dir      string        `json:"dir"`
	Cover    string        `json:"cover,omitempty"`
	State    string        `json:"state"`
	Variants []variantJSON `json:"variants"`
}

type variantJSON struct {
	QualityID  int    `json:"quality_id"`
	Quality    string `json:"quality"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	FrameRate  string `json:"frame_rate,omitempty"`
	SizeBytes  int64  `json:"size_bytes"`
	State      string `json:"state"`
	Reason     string `json:"reason,omitempty"`
	VideoPath  string `json:"video_path,omitempty"`
	AudioPath  string `json:"audio_path,omitempty"`
	SegmentDir string `json:"segment_dir"`
}

func printInventoryJSON(cmd *cobra.Command, inv *cache.Inventory) error {
	payload := inventoryJSON{
		Roots:    inv.Roots,
		Entries:  make([]entryJSON, 0, len(inv.Entries)),
		Failures: inv.Failures,
		Warnings: inv.Warnings,
	}
	for _, entry := range inv.Entries {
		ej := entryJSON{
			Title: entry.Title,
			Part:  entry.PartTitle,
			BVID:  entry.BVID,
			AVID:  entry.AVID,
			Dir:   entry.Dir,
			Cover: entry.CoverPath,
			State: string(entry.State),
		}
		for _, variant := range entry.Variants {
			vj := variantJSON{
				QualityID:  variant.QualityID,
				Quality:    variant.QualityLabel,
				Width:      variant.Width,
				Height:     variant.Height,
				FrameRate:  variant.FrameRate,
				SizeBytes:  variant.TotalBytes(),
				State:      string(variant.State),
				Reason:     variant.StateReason,
				SegmentDir: variant.Dir,
			}
			if variant.Video != nil {
				vj.VideoPath = variant.Video.Path
			}
			if variant.Audio != nil {
				vj.AudioPath = variant.Audio.Path
			}
			ej.Variants = append(ej.Variants, vj)
		}
		payload.Entries = append(payload.Entries, ej)
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}
