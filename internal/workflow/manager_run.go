package workflow

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/services"
)

// Submit starts req on its own goroutine and returns a handle to observe it.
// Cancelling ctx or calling Handle.Cancel cancels the job.
func (m *Manager) Submit(ctx context.Context, req job.Request) (*Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	jobCtx, cancel := context.WithCancel(ctx)
	h := newHandle(uuid.NewString(), cancel)
	if err := m.claim(h); err != nil {
		cancel()
		return nil, err
	}
	go func() {
		result, err := m.execute(jobCtx, h, req)
		m.release(h)
		h.finish(result, err)
	}()
	return h, nil
}

// Run executes req synchronously, calling onProgress for every snapshot.
func (m *Manager) Run(ctx context.Context, req job.Request, onProgress job.Reporter) (job.Result, error) {
	h, err := m.Submit(ctx, req)
	if err != nil {
		return job.Result{}, err
	}
	for p := range h.Progress() {
		if onProgress != nil {
			onProgress(p)
		}
	}
	return h.Wait()
}

func (m *Manager) execute(ctx context.Context, h *Handle, req job.Request) (job.Result, error) {
	started := m.now()
	ctx = services.WithJobID(ctx, h.ID)
	ctx = services.WithRequestID(ctx, uuid.NewString())

	closeLog := m.openJobLog(h.hub, h.ID)
	defer closeLog()
	m.route.attach(logging.NewHubHandler(h.hub, jobLogLevel(m.cfg.Logging.Level)))
	defer m.route.detach()

	logger := logging.WithContext(ctx, m.logger)
	ws := job.NewWorkspace(req.WorkDir, h.ID, started)

	sampler := logging.NewProgressSampler(5)
	tracker := job.NewTracker(func(p job.Progress) {
		h.publish(p)
		if sampler.ShouldLog(p.Percent, string(p.Stage)) {
			m.recordProgress(ctx, logger, h.ID, p)
		}
	})
	run := job.NewRun(h.ID, req, ws, tracker)
	run.StartedAt = started
	run.Logger = logger
	var current atomic.Value
	current.Store(string(job.StagePrepare))
	run.Sink = toolSink(ctx, h.hub, &current)

	m.recordStart(ctx, logger, run)
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.Int("sources", len(req.Sources)),
		logging.String("preset", req.Preset.ID),
		logging.String("mode", string(req.DVD.Mode)),
		logging.Bool("export_folder", req.Output.ExportFolder),
		logging.Bool("export_iso", req.Output.ExportISO),
	)

	err := m.prepare(services.WithStage(ctx, string(job.StagePrepare)), logger, run)
	if err == nil {
		err = m.runStages(ctx, logger, run, &current)
	}
	if err == nil {
		err = m.promote(ctx, logger, run)
	} else {
		discardPending(run.TakePending())
	}
	return m.complete(ctx, logger, run, err)
}

// complete builds the terminal result, records it and cleans up.
func (m *Manager) complete(ctx context.Context, logger *slog.Logger, run *job.Run, err error) (job.Result, error) {
	result := job.Result{
		JobID:            run.ID,
		VideoBitrateKbps: run.VideoBitrateKbps,
		ISOPath:          run.ISOPath,
		WorkDir:          run.Workspace.Root,
		StartedAt:        run.StartedAt,
	}
	if err != nil {
		result.Err = err
		result.State = job.StageFailed
		if services.IsCancellation(err) {
			result.State = job.StageCancelled
		}
		run.Tracker.Finish(result.State, failureMessage(err))
		m.handleFailure(logger, run, err)
	} else {
		result.Success = true
		result.State = job.StageDone
		result.VideoTSPath = run.ExportedVideoTS
		if !m.cfg.Workflow.KeepWorkDir {
			if rmErr := run.Workspace.Remove(); rmErr != nil {
				logging.WarnWithContext(logger, "workspace cleanup failed", "workspace_cleanup_failed",
					logging.String("path", run.Workspace.Root),
					logging.Error(rmErr),
					logging.String(logging.FieldImpact, "intermediate files remain in the work directory"),
				)
			}
			result.WorkDir = ""
		} else if result.VideoTSPath == "" {
			result.VideoTSPath = run.VideoTSPath
		}
		run.Tracker.Finish(job.StageDone, "Done")
		logger.Info("job completed",
			logging.String(logging.FieldEventType, "job_complete"),
			logging.String("video_ts", result.VideoTSPath),
			logging.String("iso", result.ISOPath),
			logging.Int("video_bitrate_kbps", result.VideoBitrateKbps),
			logging.Duration("job_duration", m.now().Sub(run.StartedAt)),
		)
	}
	result.FinishedAt = m.now()
	m.recordFinish(logger, result)
	m.pruneRetention(logger, run)
	return result, err
}

func (m *Manager) pruneRetention(logger *slog.Logger, run *job.Run) {
	days := m.cfg.Logging.RetentionDays
	if days <= 0 {
		return
	}
	logging.CleanupOld(logger, days,
		logging.RetentionTarget{Dir: m.cfg.JobLogDir(), Pattern: "*.log", Exclude: []string{m.jobLogPath(run.ID)}},
		logging.RetentionTarget{Dir: run.Request.WorkDir, Pattern: "job_*", Dirs: true, Exclude: []string{run.Workspace.Root}},
	)
}
