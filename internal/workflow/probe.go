package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/media/ffprobe"
	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
	"dvdmaker/internal/stage"
	"dvdmaker/internal/tools"
)

// ProbeStage fills SourceItem metadata from ffprobe.
type ProbeStage struct {
	runner   process.Runner
	provider stage.ToolProvider
	strict   bool
	logger   *slog.Logger
}

// NewProbeStage builds the probe stage. With strict set, a source that cannot
// be probed fails the job; otherwise it keeps zero metadata.
func NewProbeStage(runner process.Runner, provider stage.ToolProvider, strict bool, logger *slog.Logger) *ProbeStage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ProbeStage{runner: runner, provider: provider, strict: strict, logger: logging.NewComponentLogger(logger, "probe")}
}

func (p *ProbeStage) Prepare(ctx context.Context, run *job.Run) error {
	_, err := stage.RequireTool(ctx, p.provider, run, job.StageProbe, tools.FFprobe)
	return err
}

func (p *ProbeStage) HealthCheck(context.Context) stage.Health {
	if p.runner == nil || p.provider == nil {
		return stage.Unhealthy("probe", "runner or tool provider not configured")
	}
	return stage.Healthy("probe")
}

func (p *ProbeStage) Execute(ctx context.Context, run *job.Run) error {
	binary, err := stage.RequireTool(ctx, p.provider, run, job.StageProbe, tools.FFprobe)
	if err != nil {
		return err
	}
	prober := ffprobe.NewProber(binary, p.runner, ffprobe.WithSink(run.LineSink(tools.FFprobe)))
	logger := logging.WithContext(ctx, p.logger)
	total := len(run.Sources)
	for i := range run.Sources {
		if err := stage.CheckCancelled(ctx, job.StageProbe); err != nil {
			return err
		}
		src := &run.Sources[i]
		run.Tracker.Update(job.StageProbe, float64(i)/float64(total), fmt.Sprintf("Probing %s", filepath.Base(src.Path)))
		meta, err := prober.Probe(ctx, src.Path)
		if err != nil {
			if p.strict || services.IsCancellation(err) || errors.Is(err, services.ErrToolMissing) {
				return stage.Fail(job.StageProbe, err)
			}
			logging.WarnWithContext(logger, "probe failed; continuing with unknown metadata", "probe_failed",
				logging.String("source", src.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "set probe.strict = true to stop on unreadable sources"),
				logging.String(logging.FieldImpact, "bitrate fit and chapters assume zero duration for this source"),
			)
			continue
		}
		src.DurationSeconds = meta.DurationSeconds
		src.Width = meta.Width
		src.Height = meta.Height
		src.FrameRate = meta.FrameRate
		src.HasAudio = meta.HasAudio
		src.AudioChannels = meta.AudioChannels
		src.AudioSampleRate = meta.AudioSampleRate
		logger.Info("source probed",
			logging.String("source", src.Path),
			logging.Float64("duration_seconds", meta.DurationSeconds),
			logging.String("resolution", fmt.Sprintf("%dx%d", meta.Width, meta.Height)),
			logging.Bool("has_audio", meta.HasAudio),
		)
	}
	run.Tracker.Update(job.StageProbe, 1, fmt.Sprintf("Probed %d source(s)", total))
	return nil
}
