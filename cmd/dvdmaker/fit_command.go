package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"dvdmaker/internal/bitrate"
	"dvdmaker/internal/media/ffprobe"
	"dvdmaker/internal/preset"
	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
	"dvdmaker/internal/tools"
)

type fitFlags struct {
	preset   string
	duration time.Duration
	audio    int
	min      int
	max      int
}

func newFitCommand(ctx *commandContext) *cobra.Command {
	var flags fitFlags

	cmd := &cobra.Command{
		Use:   "fit [source]...",
		Short: "Show the video bitrate that fills one disc",
		Long: "Computes the single video bitrate a conversion would use. Pass source files to probe\n" +
			"their total duration, or --duration to skip probing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if len(args) == 0 && flags.duration <= 0 {
				return services.Wrap(services.KindValidation, "probe", "fit", "pass source files or --duration", nil)
			}
			presetID := flags.preset
			if presetID == "" {
				presetID = cfg.DVD.Preset
			}
			def, err := preset.NewCatalog(cfg.Presets).Lookup(presetID)
			if err != nil {
				return services.Wrap(services.KindValidation, "probe", "select preset", err.Error(), err)
			}
			changed := cmd.Flags().Changed
			if changed("audio") {
				def.Audio.BitrateKbps = flags.audio
			}
			if changed("min") {
				def.Video.MinKbps = flags.min
			}
			if changed("max") {
				def.Video.MaxKbps = flags.max
			}

			out := cmd.OutOrStdout()
			total := flags.duration.Seconds()
			if len(args) > 0 {
				probed, err := probeTable(cmd, ctx, args)
				if err != nil {
					return err
				}
				total = probed
			}
			fmt.Fprintf(out, "Total duration %s, preset %s: video %d kbps, audio %d kbps, two-pass %s\n",
				formatSeconds(total), def.ID, def.VideoBitrate(total), def.Audio.BitrateKbps, yesNo(def.TwoPassEnabled()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.preset, "preset", "p", "", "Encoding preset id")
	cmd.Flags().DurationVar(&flags.duration, "duration", 0, "Total running time, e.g. 1h30m (skips probing)")
	cmd.Flags().IntVar(&flags.audio, "audio", 0, "Audio bitrate in kbps (overrides the preset)")
	cmd.Flags().IntVar(&flags.min, "min", 0, "Minimum video bitrate in kbps (overrides the preset)")
	cmd.Flags().IntVar(&flags.max, "max", 0, "Maximum video bitrate in kbps (overrides the preset)")
	return cmd
}

// probeTable probes every source, prints one row each and returns the
// total duration in seconds.
func probeTable(cmd *cobra.Command, ctx *commandContext, paths []string) (float64, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return 0, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return 0, err
	}
	binary, err := newBootstrapper(cfg, logger).Ensure(cmd.Context(), tools.FFprobe)
	if err != nil {
		return 0, err
	}
	prober := ffprobe.NewProber(binary, process.New(process.WithLogger(logger)))

	rows := make([][]string, 0, len(paths))
	durations := make([]float64, 0, len(paths))
	var failures []error
	for _, path := range paths {
		meta, err := prober.Probe(cmd.Context(), path)
		if err != nil {
			if services.IsCancellation(err) {
				return 0, err
			}
			failures = append(failures, fmt.Errorf("%s: %w", filepath.Base(path), err))
			rows = append(rows, []string{filepath.Base(path), "unknown", "", "", ""})
			continue
		}
		durations = append(durations, meta.DurationSeconds)
		rows = append(rows, []string{
			filepath.Base(path),
			formatSeconds(meta.DurationSeconds),
			fmt.Sprintf("%dx%d", meta.Width, meta.Height),
			fmt.Sprintf("%.3f", meta.FrameRate),
			yesNo(meta.HasAudio),
		})
	}
	total := bitrate.TotalDuration(durations...)
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Source", "Duration", "Size", "FPS", "Audio"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	if len(durations) == 0 {
		return 0, errors.Join(failures...)
	}
	for _, f := range failures {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", f)
	}
	return total, nil
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "unknown"
	}
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
