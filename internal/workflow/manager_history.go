package workflow

import (
	"context"
	"log/slog"

	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
)

// History writes are best effort: a broken history database never fails a
// conversion.

func (m *Manager) recordStart(ctx context.Context, logger *slog.Logger, run *job.Run) {
	if m.store == nil {
		return
	}
	if err := m.store.Start(ctx, run.ID, run.Request, run.Workspace.Root, run.StartedAt); err != nil {
		logging.WarnWithContext(logger, "job history unavailable", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "job will be missing from history"),
		)
	}
}

func (m *Manager) recordProgress(ctx context.Context, logger *slog.Logger, id string, p job.Progress) {
	logger.Debug("progress",
		logging.String(logging.FieldEventType, "progress"),
		logging.String(logging.FieldStage, string(p.Stage)),
		logging.Float64("percent", p.Percent),
		logging.String("progress_message", p.Message),
	)
	if m.store == nil || p.Stage.Terminal() {
		return
	}
	if err := m.store.UpdateProgress(ctx, id, p); err != nil {
		logger.Debug("history progress update failed", logging.Error(err))
	}
}

func (m *Manager) recordFinish(logger *slog.Logger, result job.Result) {
	if m.store == nil {
		return
	}
	// The job context may already be cancelled; the final row must still land.
	if err := m.store.Finish(context.Background(), result); err != nil {
		logging.WarnWithContext(logger, "job result not recorded", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "history shows the job as unfinished"),
		)
	}
}
