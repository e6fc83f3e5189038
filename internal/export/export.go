// Package export copies the authored VIDEO_TS tree into the output directory.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"dvdmaker/internal/fileutil"
	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/services"
	"dvdmaker/internal/stage"
)

// FolderName is the exported directory name under the output directory.
const FolderName = "VIDEO_TS"

// Exporter is the folder export stage.
type Exporter struct {
	logger *slog.Logger
}

// NewExporter builds the export stage.
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Exporter{logger: logging.NewComponentLogger(logger, "export")}
}

func (e *Exporter) Prepare(context.Context, *job.Run) error { return nil }

func (e *Exporter) HealthCheck(context.Context) stage.Health { return stage.Healthy("export") }

// Execute stages a copy of run.VideoTSPath beside <output>/VIDEO_TS and
// defers the rename into place until the job succeeds. It does nothing when
// folder export was not requested.
func (e *Exporter) Execute(ctx context.Context, run *job.Run) error {
	if !run.Request.Output.ExportFolder {
		return nil
	}
	outputDir := run.Request.Output.Dir
	staging, err := Stage(ctx, run.VideoTSPath, outputDir)
	if err != nil {
		return stage.Fail(job.StageExport, err)
	}
	logger := logging.WithContext(ctx, e.logger)
	run.Defer(job.Pending{
		Stage: job.StageExport,
		Promote: func() (string, error) {
			target, err := Promote(staging, outputDir)
			if err != nil {
				return "", err
			}
			run.ExportedVideoTS = target
			logger.Info("VIDEO_TS exported",
				logging.String("path", target),
				logging.String(logging.FieldEventType, "export_complete"),
			)
			return target, nil
		},
		Discard: func() { _ = os.RemoveAll(staging) },
	})
	run.Tracker.Update(job.StageExport, 1, "Staged VIDEO_TS")
	return nil
}

// Copy replaces <outputDir>/VIDEO_TS with a copy of src.
func Copy(ctx context.Context, src, outputDir string) (string, error) {
	staging, err := Stage(ctx, src, outputDir)
	if err != nil {
		return "", err
	}
	target, err := Promote(staging, outputDir)
	if err != nil {
		_ = os.RemoveAll(staging)
		return "", err
	}
	return target, nil
}

// Stage copies src into a hidden sibling of <outputDir>/VIDEO_TS and returns
// its path. A failed or cancelled copy leaves nothing behind.
func Stage(ctx context.Context, src, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.KindFilesystem, string(job.StageExport), "create output directory", outputDir, err)
	}
	staging := filepath.Join(outputDir, fmt.Sprintf(".%s.staging-%s", FolderName, uuid.NewString()))
	if _, err := fileutil.CopyTree(ctx, src, staging); err != nil {
		_ = os.RemoveAll(staging)
		if services.IsCancellation(err) {
			return "", services.Cancelled(string(job.StageExport), err)
		}
		return "", services.Wrap(services.KindFilesystem, string(job.StageExport), "copy VIDEO_TS", src, err)
	}
	if err := ctx.Err(); err != nil {
		_ = os.RemoveAll(staging)
		return "", services.Cancelled(string(job.StageExport), err)
	}
	return staging, nil
}

// Promote replaces <outputDir>/VIDEO_TS with the staged tree.
func Promote(staging, outputDir string) (string, error) {
	target := filepath.Join(outputDir, FolderName)
	if err := os.RemoveAll(target); err != nil {
		return "", services.Wrap(services.KindFilesystem, string(job.StageExport), "replace existing VIDEO_TS", target, err)
	}
	if err := os.Rename(staging, target); err != nil {
		return "", services.Wrap(services.KindFilesystem, string(job.StageExport), "promote VIDEO_TS", target, err)
	}
	return target, nil
}
