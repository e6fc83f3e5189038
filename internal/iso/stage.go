package iso

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dvdmaker/internal/fileutil"
	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
	"dvdmaker/internal/stage"
)

// Locator finds or installs builder executables.
type Locator interface {
	stage.ToolProvider
	Available(name string) bool
}

// Stage is the ISO stage handler.
type Stage struct {
	runner   process.Runner
	locator  Locator
	builders []Builder
	logger   *slog.Logger
}

// NewStage builds the ISO stage trying builders in order.
func NewStage(runner process.Runner, locator Locator, builders []Builder, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{runner: runner, locator: locator, builders: builders, logger: logging.NewComponentLogger(logger, "iso")}
}

func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.runner == nil || s.locator == nil || len(s.builders) == 0 {
		return stage.Unhealthy("iso", "runner, locator or builders not configured")
	}
	return stage.Healthy("iso")
}

// Prepare selects the builder when an image was requested so a missing tool
// fails the job before any encoding starts.
func (s *Stage) Prepare(ctx context.Context, run *job.Run) error {
	if !run.Request.Output.ExportISO {
		return nil
	}
	_, _, err := s.selectBuilder(ctx, run)
	return err
}

func (s *Stage) selectBuilder(ctx context.Context, run *job.Run) (Builder, string, error) {
	if run.ISOBuilder != "" {
		if path, ok := run.Tool(run.ISOBuilder); ok {
			if b, err := Lookup(run.ISOBuilder); err == nil {
				return b, path, nil
			}
		}
	}
	tried := make([]string, 0, len(s.builders))
	var lastErr error
	for _, b := range s.builders {
		tried = append(tried, b.Name())
		if !s.locator.Available(b.Name()) {
			continue
		}
		path, err := s.locator.Ensure(ctx, b.Name())
		if err != nil {
			if services.IsCancellation(err) {
				return nil, "", stage.Fail(job.StageISO, err)
			}
			lastErr = err
			s.logger.Warn("ISO builder unusable",
				logging.String(logging.FieldTool, b.Name()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "trying next builder"),
			)
			continue
		}
		run.SetTool(b.Name(), path)
		run.ISOBuilder = b.Name()
		return b, path, nil
	}
	return nil, "", &services.Error{
		Kind:    services.KindToolMissing,
		Stage:   string(job.StageISO),
		Tool:    strings.Join(tried, ","),
		Message: "no ISO tool available",
		Err:     lastErr,
	}
}

// Execute builds the image inside the workspace and moves it to the output
// directory. It does nothing when no image was requested.
func (s *Stage) Execute(ctx context.Context, run *job.Run) error {
	if !run.Request.Output.ExportISO {
		return nil
	}
	builder, binary, err := s.selectBuilder(ctx, run)
	if err != nil {
		return err
	}
	label := run.Request.Output.VolumeLabel()
	staged := filepath.Join(run.Workspace.ImageDir(), run.Request.Output.ISOName())
	root := run.Workspace.DVDRoot()

	logger := logging.WithContext(ctx, s.logger)
	logger.Info("building ISO image",
		logging.String(logging.FieldTool, builder.Name()),
		logging.String("label", label),
		logging.String(logging.FieldEventType, "iso_builder_selected"),
	)
	run.Tracker.Update(job.StageISO, 0.05, fmt.Sprintf("Building ISO with %s", builder.Name()))

	if err := Build(ctx, s.runner, builder, binary, root, staged, label, run.LineSink(builder.Name())); err != nil {
		return err
	}

	outDir := run.Request.Output.Dir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return services.Wrap(services.KindFilesystem, string(job.StageISO), "create output directory", outDir, err)
	}
	final := filepath.Join(outDir, run.Request.Output.ISOName())
	if err := fileutil.MoveFile(staged, final); err != nil {
		return services.Wrap(services.KindFilesystem, string(job.StageISO), "move image", final, err)
	}
	run.ISOPath = final
	run.Tracker.Update(job.StageISO, 1, "ISO image ready")
	return nil
}

// Build runs builder over root and verifies a non-empty image at out.
func Build(ctx context.Context, runner process.Runner, builder Builder, binary, root, out, label string, sink process.LineSink) error {
	if err := stage.CheckCancelled(ctx, job.StageISO); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return services.Wrap(services.KindFilesystem, string(job.StageISO), "create image directory", "", err)
	}
	_ = os.Remove(out)
	_, err := runner.Run(ctx, process.Command{
		Tool: builder.Name(),
		Path: binary,
		Args: builder.Args(root, out, label),
		Sink: sink,
	})
	if err != nil {
		_ = os.Remove(out)
		return stage.Fail(job.StageISO, err)
	}
	info, err := os.Stat(out)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(out)
		return &services.Error{
			Kind:      services.KindOutputIntegrity,
			Stage:     string(job.StageISO),
			Tool:      builder.Name(),
			Operation: "verify image",
			Message:   fmt.Sprintf("image %s missing or empty", out),
			Err:       err,
		}
	}
	return nil
}
