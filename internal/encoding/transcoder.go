package encoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
	"dvdmaker/internal/stage"
	"dvdmaker/internal/tools"
)

// Transcoder is the transcode stage handler.
type Transcoder struct {
	runner   process.Runner
	provider stage.ToolProvider
	logger   *slog.Logger
}

// Option customizes a Transcoder.
type Option func(*Transcoder)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transcoder) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTranscoder builds the transcode stage.
func NewTranscoder(runner process.Runner, provider stage.ToolProvider, opts ...Option) *Transcoder {
	t := &Transcoder{runner: runner, provider: provider, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.NewComponentLogger(t.logger, "encoding")
	return t
}

// Prepare resolves ffmpeg.
func (t *Transcoder) Prepare(ctx context.Context, run *job.Run) error {
	_, err := stage.RequireTool(ctx, t.provider, run, job.StageTranscode, tools.FFmpeg)
	return err
}

// HealthCheck reports whether the stage has its dependencies wired.
func (t *Transcoder) HealthCheck(context.Context) stage.Health {
	if t.runner == nil || t.provider == nil {
		return stage.Unhealthy("transcode", "runner or tool provider not configured")
	}
	return stage.Healthy("transcode")
}

// Execute transcodes every source into the workspace, in input order unless
// parallel transcodes are enabled.
func (t *Transcoder) Execute(ctx context.Context, run *job.Run) error {
	ffmpeg, err := stage.RequireTool(ctx, t.provider, run, job.StageTranscode, tools.FFmpeg)
	if err != nil {
		return err
	}
	if run.VideoBitrateKbps <= 0 {
		run.VideoBitrateKbps = run.Request.Preset.VideoBitrate(run.TotalDuration())
	}
	logger := logging.WithContext(ctx, t.logger)
	logger.Info("transcode decision",
		logging.String(logging.FieldEventType, "bitrate_selected"),
		logging.String("preset", run.Request.Preset.ID),
		logging.Int("video_kbps", run.VideoBitrateKbps),
		logging.Float64("total_seconds", run.TotalDuration()),
		logging.Bool("two_pass", run.Request.Preset.TwoPassEnabled()),
		logging.Int("workers", run.Request.Workers()),
	)

	n := len(run.Sources)
	outputs := make([]string, n)
	agg := newAggregate(n, func(fraction float64, message string) {
		run.Tracker.Update(job.StageTranscode, fraction, message)
	})

	encodeOne := func(ctx context.Context, i int) error {
		if err := stage.CheckCancelled(ctx, job.StageTranscode); err != nil {
			return err
		}
		out, err := t.transcodeSource(ctx, run, ffmpeg, i, agg)
		if err != nil {
			return err
		}
		outputs[i] = out
		return nil
	}

	workers := run.Request.Workers()
	if workers <= 1 {
		for i := range n {
			if err := encodeOne(ctx, i); err != nil {
				return err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range n {
			g.Go(func() error { return encodeOne(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			if ctx.Err() != nil {
				return services.Cancelled(string(job.StageTranscode), ctx.Err())
			}
			return err
		}
	}

	run.Streams = outputs
	return nil
}

func (t *Transcoder) transcodeSource(ctx context.Context, run *job.Run, ffmpeg string, i int, agg *aggregate) (string, error) {
	src := run.Sources[i]
	def := run.Request.Preset
	output := run.Workspace.TranscodedPath(i, src.Path)
	label := fmt.Sprintf("Transcoding %d/%d %s", i+1, len(run.Sources), filepath.Base(src.Path))

	params := Params{
		Input:         src.Path,
		Output:        output,
		Mode:          run.Request.DVD.Mode,
		Aspect:        run.Request.DVD.Aspect,
		VideoKbps:     run.VideoBitrateKbps,
		MaxKbps:       def.Video.MaxKbps,
		MinKbps:       def.Video.MinKbps,
		BufferKB:      def.Video.BufferKB,
		Audio:         def.Audio,
		HasAudio:      src.HasAudio,
		PassLogPrefix: run.Workspace.PassLogPrefix(i),
	}
	passes := []Pass{SinglePass}
	if def.TwoPassEnabled() {
		passes = []Pass{FirstPass, SecondPass}
	}

	logger := logging.WithContext(ctx, t.logger).With(
		logging.String("source", filepath.Base(src.Path)),
		logging.Int("index", i+1),
	)
	agg.set(i, 0, label)
	for p, pass := range passes {
		params.Pass = pass
		share := 1.0 / float64(len(passes))
		base := float64(p) * share
		parser := newProgressParser(src.DurationSeconds, func(fraction float64, speed string) {
			message := label
			if speed != "" && speed != "N/A" {
				message = fmt.Sprintf("%s @ %s", label, speed)
			}
			agg.set(i, base+fraction*share, message)
		})
		logger.Debug("launching ffmpeg", logging.Int("pass", int(pass)))
		_, err := t.runner.Run(ctx, process.Command{
			Tool: tools.FFmpeg,
			Path: ffmpeg,
			Args: BuildArgs(params),
			Dir:  run.Workspace.Root,
			Sink: process.Tee(run.LineSink(tools.FFmpeg), parser.Line),
		})
		if err != nil {
			_ = os.Remove(output)
			return "", stage.Fail(job.StageTranscode, err)
		}
	}

	if err := verifyOutput(output); err != nil {
		_ = os.Remove(output)
		return "", err
	}
	agg.set(i, 1, label)
	logger.Info("source transcoded", logging.String("output", output))
	return output, nil
}

func verifyOutput(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return outputError(path, "ffmpeg produced no output file", nil)
	case err != nil:
		return outputError(path, "cannot stat transcoded stream", err)
	case info.Size() == 0:
		return outputError(path, "transcoded stream is empty", nil)
	}
	return nil
}

func outputError(path, message string, err error) error {
	return &services.Error{
		Kind:      services.KindOutputIntegrity,
		Stage:     string(job.StageTranscode),
		Tool:      tools.FFmpeg,
		Operation: "verify output",
		Message:   fmt.Sprintf("%s: %s", message, filepath.Base(path)),
		Err:       err,
	}
}

// aggregate averages per-source fractions into one stage fraction.
type aggregate struct {
	mu        sync.Mutex
	fractions []float64
	emit      func(float64, string)
}

func newAggregate(n int, emit func(float64, string)) *aggregate {
	return &aggregate{fractions: make([]float64, n), emit: emit}
}

func (a *aggregate) set(i int, fraction float64, message string) {
	a.mu.Lock()
	if fraction > a.fractions[i] {
		a.fractions[i] = fraction
	}
	sum := 0.0
	for _, f := range a.fractions {
		sum += f
	}
	total := sum / float64(len(a.fractions))
	a.mu.Unlock()
	a.emit(total, message)
}
