package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dvdmaker/internal/jobstore"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past conversion jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					shortID(rec.ID),
					humanize.Time(rec.StartedAt),
					string(rec.State),
					fmt.Sprintf("%.0f%%", rec.Percent),
					fmt.Sprintf("%d", len(rec.Sources)),
					rec.Preset,
					historyOutcome(rec),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Started", "State", "Progress", "Sources", "Preset", "Outcome"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum jobs to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := findRecord(cmd, store, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job:        %s\n", rec.ID)
			fmt.Fprintf(out, "State:      %s (%s, %.0f%%)\n", rec.State, rec.Stage, rec.Percent)
			fmt.Fprintf(out, "Started:    %s\n", rec.StartedAt.Local().Format(time.DateTime))
			if !rec.FinishedAt.IsZero() {
				fmt.Fprintf(out, "Finished:   %s (%s)\n", rec.FinishedAt.Local().Format(time.DateTime),
					rec.FinishedAt.Sub(rec.StartedAt).Round(time.Second))
			}
			fmt.Fprintf(out, "Preset:     %s (%s)\n", rec.Preset, rec.Mode)
			if rec.VideoBitrateKbps > 0 {
				fmt.Fprintf(out, "Bitrate:    %d kbps\n", rec.VideoBitrateKbps)
			}
			for i, src := range rec.Sources {
				fmt.Fprintf(out, "Source %-3d  %s\n", i+1, src)
			}
			if rec.VideoTSPath != "" {
				fmt.Fprintf(out, "VIDEO_TS:   %s\n", rec.VideoTSPath)
			}
			if rec.ISOPath != "" {
				fmt.Fprintf(out, "ISO:        %s\n", rec.ISOPath)
			}
			if rec.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:      [%s] %s\n", rec.ErrorKind, rec.ErrorMessage)
			}
			return nil
		},
	}
}

// findRecord accepts a full id or the unique prefix shown by the list view.
func findRecord(cmd *cobra.Command, store *jobstore.Store, id string) (*jobstore.Record, error) {
	id = strings.TrimSpace(id)
	rec, err := store.Get(cmd.Context(), id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, jobstore.ErrNotFound) {
		return nil, err
	}
	records, err := store.List(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var match *jobstore.Record
	for i := range records {
		if strings.HasPrefix(records[i].ID, id) {
			if match != nil {
				return nil, fmt.Errorf("job id prefix %q is ambiguous", id)
			}
			match = &records[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("job %s: %w", id, jobstore.ErrNotFound)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func historyOutcome(rec jobstore.Record) string {
	switch {
	case rec.ErrorMessage != "":
		msg := rec.ErrorMessage
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		return msg
	case rec.ISOPath != "":
		return rec.ISOPath
	default:
		return rec.VideoTSPath
	}
}
