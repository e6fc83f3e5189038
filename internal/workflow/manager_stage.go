package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/services"
	"dvdmaker/internal/stage"
)

// prepare validates the request, creates the workspace and lets every
// applicable stage resolve its tools before any encoding starts.
func (m *Manager) prepare(ctx context.Context, logger *slog.Logger, run *job.Run) error {
	run.Tracker.Enter(job.StagePrepare, "Validating request")
	if err := stage.CheckCancelled(ctx, job.StagePrepare); err != nil {
		return err
	}
	if err := run.Request.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(run.Request.WorkDir, 0o755); err != nil {
		return services.Wrap(services.KindFilesystem, string(job.StagePrepare), "create work directory", run.Request.WorkDir, err)
	}
	if err := m.runPreflightChecks(logger, run.Request); err != nil {
		return err
	}
	if err := run.Workspace.Create(); err != nil {
		return services.Wrap(services.KindFilesystem, string(job.StagePrepare), "create workspace", "", err)
	}
	run.Tracker.Update(job.StagePrepare, 0.5, "Resolving tools")

	for _, ps := range m.stages.pipeline() {
		if !ps.enabled(run.Request) {
			continue
		}
		if err := stage.CheckCancelled(ctx, job.StagePrepare); err != nil {
			return err
		}
		if err := ps.handler.Prepare(services.WithStage(ctx, string(ps.stage)), run); err != nil {
			return stage.Fail(ps.stage, err)
		}
	}
	run.Tracker.Update(job.StagePrepare, 1, "Prepared")
	return nil
}

// runStages executes the pipeline strictly in order.
func (m *Manager) runStages(ctx context.Context, logger *slog.Logger, run *job.Run, current *atomic.Value) error {
	for _, ps := range m.stages.pipeline() {
		if err := stage.CheckCancelled(ctx, ps.stage); err != nil {
			return err
		}
		if !ps.enabled(run.Request) {
			logger.Debug("stage skipped", logging.String(logging.FieldStage, string(ps.stage)))
			continue
		}
		current.Store(string(ps.stage))
		if err := m.executeStage(services.WithStage(ctx, string(ps.stage)), logger, run, ps); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) executeStage(ctx context.Context, logger *slog.Logger, run *job.Run, ps pipelineStage) error {
	stageLogger := logger.With(logging.String(logging.FieldStage, string(ps.stage)))
	stageStart := m.now()
	run.Tracker.Enter(ps.stage, stageLabel(ps.stage))
	stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	if err := ps.handler.Execute(ctx, run); err != nil {
		return stage.Fail(ps.stage, err)
	}
	run.Tracker.Update(ps.stage, 1, fmt.Sprintf("%s complete", stageLabel(ps.stage)))
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	return nil
}

// promote moves staged artifacts into the output directory once every stage
// has succeeded. On failure the remaining staged copies are discarded and the
// ISO image, already placed by the last stage, is withdrawn.
func (m *Manager) promote(ctx context.Context, logger *slog.Logger, run *job.Run) error {
	pending := run.TakePending()
	for i, p := range pending {
		err := stage.CheckCancelled(ctx, p.Stage)
		if err == nil {
			_, err = p.Promote()
		}
		if err != nil {
			discardPending(pending[i:])
			m.withdrawISO(logger, run)
			return stage.Fail(p.Stage, err)
		}
	}
	return nil
}

func discardPending(pending []job.Pending) {
	for _, p := range pending {
		if p.Discard != nil {
			p.Discard()
		}
	}
}

func (m *Manager) withdrawISO(logger *slog.Logger, run *job.Run) {
	if run.ISOPath == "" {
		return
	}
	if err := os.Remove(run.ISOPath); err != nil && !os.IsNotExist(err) {
		logging.WarnWithContext(logger, "withdraw ISO image failed", "iso_withdraw_failed",
			logging.String("path", run.ISOPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "an image from a failed job remains in the output directory"),
		)
		return
	}
	run.ISOPath = ""
}

func stageLabel(s job.Stage) string {
	switch s {
	case job.StagePrepare:
		return "Preparing"
	case job.StageProbe:
		return "Probing sources"
	case job.StageTranscode:
		return "Transcoding"
	case job.StageAuthor:
		return "Authoring DVD"
	case job.StageValidate:
		return "Validating VIDEO_TS"
	case job.StageExport:
		return "Exporting VIDEO_TS"
	case job.StageISO:
		return "Building ISO"
	default:
		return string(s)
	}
}
