package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dvdmaker/internal/job"
	"dvdmaker/internal/workflow"
)

type convertFlags struct {
	mode         string
	aspect       string
	chapters     int
	preset       string
	exportFolder bool
	exportISO    bool
	output       string
	label        string
	workDir      string
	parallel     int
	json         bool
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var flags convertFlags

	cmd := &cobra.Command{
		Use:   "convert <source>...",
		Short: "Convert video files into a DVD-Video folder and/or ISO image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			overrides := flags.overrides(cmd)
			req, err := workflow.NewRequest(cfg, nil, args, overrides)
			if err != nil {
				return err
			}

			manager, closeStore, err := ctx.newManager(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			renderer := newProgressRenderer(out, flags.json)
			result, runErr := manager.Run(runCtx, req, renderer.Render)
			renderer.Close()

			if flags.json {
				if err := writeJSON(cmd, newResultView(result)); err != nil {
					return err
				}
				return runErr
			}
			if runErr != nil {
				if result.WorkDir != "" {
					fmt.Fprintf(out, "Work files kept in %s\n", result.WorkDir)
				}
				return runErr
			}
			printResult(out, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.mode, "mode", "", "Video standard: pal or ntsc")
	cmd.Flags().StringVar(&flags.aspect, "aspect", "", "Display aspect: auto, 16:9 or 4:3")
	cmd.Flags().IntVar(&flags.chapters, "chapters", 0, "Chapter interval in minutes (0 disables chapters)")
	cmd.Flags().StringVarP(&flags.preset, "preset", "p", "", "Encoding preset id")
	cmd.Flags().BoolVar(&flags.exportFolder, "folder", true, "Export the VIDEO_TS folder")
	cmd.Flags().BoolVar(&flags.exportISO, "iso", false, "Build an ISO image")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output directory")
	cmd.Flags().StringVar(&flags.label, "label", "", "Disc volume label")
	cmd.Flags().StringVar(&flags.workDir, "work-dir", "", "Scratch directory for this job")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 0, "Concurrent transcodes")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the result as JSON")
	return cmd
}

// overrides keeps only the flags the user actually set so config defaults
// apply to everything else.
func (f convertFlags) overrides(cmd *cobra.Command) workflow.Overrides {
	o := workflow.Overrides{
		Mode:      f.mode,
		Aspect:    f.aspect,
		Preset:    f.preset,
		OutputDir: f.output,
		Label:     f.label,
		WorkDir:   f.workDir,
	}
	changed := cmd.Flags().Changed
	if changed("chapters") {
		o.ChapterMinutes = &f.chapters
	}
	if changed("folder") {
		o.ExportFolder = &f.exportFolder
	}
	if changed("iso") {
		o.ExportISO = &f.exportISO
	}
	if changed("parallel") {
		o.Parallel = &f.parallel
	}
	return o
}

func printResult(out io.Writer, result job.Result) {
	fmt.Fprintf(out, "Job %s completed in %s\n", result.JobID, result.Duration().Round(time.Second))
	fmt.Fprintf(out, "Video bitrate: %d kbps\n", result.VideoBitrateKbps)
	if result.VideoTSPath != "" {
		fmt.Fprintf(out, "VIDEO_TS: %s\n", result.VideoTSPath)
	}
	if result.ISOPath != "" {
		if info, err := os.Stat(result.ISOPath); err == nil {
			fmt.Fprintf(out, "ISO: %s (%s)\n", result.ISOPath, humanize.IBytes(uint64(info.Size())))
		} else {
			fmt.Fprintf(out, "ISO: %s\n", result.ISOPath)
		}
	}
	if result.WorkDir != "" {
		fmt.Fprintf(out, "Work files kept in %s\n", result.WorkDir)
	}
}
