package workflow

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"

	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
)

// jobRoute is a slog handler that mirrors records into the hub of the job
// currently running. With no job attached it drops everything.
type jobRoute struct {
	target *atomic.Pointer[slog.Handler]
	level  slog.Level
	ops    []func(slog.Handler) slog.Handler
}

func newJobRoute(level slog.Level) *jobRoute {
	return &jobRoute{target: new(atomic.Pointer[slog.Handler]), level: level}
}

func (r *jobRoute) attach(h slog.Handler) { r.target.Store(&h) }

func (r *jobRoute) detach() { r.target.Store(nil) }

func (r *jobRoute) Enabled(_ context.Context, level slog.Level) bool {
	return r.target.Load() != nil && level >= r.level
}

func (r *jobRoute) Handle(ctx context.Context, record slog.Record) error {
	ptr := r.target.Load()
	if ptr == nil {
		return nil
	}
	h := *ptr
	for _, op := range r.ops {
		h = op(h)
	}
	return h.Handle(ctx, record)
}

func (r *jobRoute) WithAttrs(attrs []slog.Attr) slog.Handler {
	return r.with(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (r *jobRoute) WithGroup(name string) slog.Handler {
	return r.with(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (r *jobRoute) with(op func(slog.Handler) slog.Handler) *jobRoute {
	ops := make([]func(slog.Handler) slog.Handler, 0, len(r.ops)+1)
	ops = append(ops, r.ops...)
	ops = append(ops, op)
	return &jobRoute{target: r.target, level: r.level, ops: ops}
}

func jobLogLevel(level string) slog.Level {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// jobLogPath returns <log_dir>/jobs/<id>.log.
func (m *Manager) jobLogPath(id string) string {
	return filepath.Join(m.cfg.JobLogDir(), id+".log")
}

// openJobLog attaches the append-only log file to hub. A failure to open the
// file is logged and the job continues with the in-memory stream only.
func (m *Manager) openJobLog(hub *logging.StreamHub, id string) func() {
	path := m.jobLogPath(id)
	sink, err := logging.NewFileSink(path)
	if err != nil {
		logging.WarnWithContext(m.logger, "job log unavailable", "job_log_unavailable",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the log directory"),
			logging.String(logging.FieldImpact, "tool output is only kept in memory"),
		)
		return func() {}
	}
	hub.AddSink(sink)
	return func() {
		if err := sink.Close(); err != nil {
			m.logger.Warn("job log close failed", logging.String("path", path), logging.Error(err))
		}
	}
}

// toolSink publishes every tool line into hub tagged with the job and the
// stage that was current when the line arrived.
func toolSink(ctx context.Context, hub *logging.StreamHub, current *atomic.Value) job.ToolSink {
	return func(tool string) process.LineSink {
		return func(stream, line string) {
			lineCtx := ctx
			if name, ok := current.Load().(string); ok {
				lineCtx = services.WithStage(ctx, name)
			}
			hub.PublishLine(lineCtx, tool, stream, line)
		}
	}
}
