package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"dvdmaker/internal/job"
	"dvdmaker/internal/services"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type resultView struct {
	JobID            string     `json:"job_id"`
	Success          bool       `json:"success"`
	State            string     `json:"state"`
	VideoTSPath      string     `json:"video_ts_path,omitempty"`
	ISOPath          string     `json:"iso_path,omitempty"`
	VideoBitrateKbps int        `json:"video_bitrate_kbps"`
	WorkDir          string     `json:"work_dir,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       time.Time  `json:"finished_at"`
	Error            *errorView `json:"error,omitempty"`
}

type errorView struct {
	Kind     string   `json:"kind"`
	Stage    string   `json:"stage,omitempty"`
	Tool     string   `json:"tool,omitempty"`
	ExitCode int      `json:"exit_code,omitempty"`
	Message  string   `json:"message"`
	Tail     []string `json:"tail,omitempty"`
}

func newResultView(result job.Result) resultView {
	view := resultView{
		JobID:            result.JobID,
		Success:          result.Success,
		State:            string(result.State),
		VideoTSPath:      result.VideoTSPath,
		ISOPath:          result.ISOPath,
		VideoBitrateKbps: result.VideoBitrateKbps,
		WorkDir:          result.WorkDir,
		StartedAt:        result.StartedAt,
		FinishedAt:       result.FinishedAt,
	}
	if result.Err != nil {
		details := services.Details(result.Err)
		view.Error = &errorView{
			Kind:     string(details.Kind),
			Stage:    details.Stage,
			Tool:     details.Tool,
			ExitCode: details.ExitCode,
			Message:  result.Err.Error(),
			Tail:     details.Tail,
		}
	}
	return view
}
