package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/preflight"
	"dvdmaker/internal/services"
)

// runPreflightChecks verifies the job's work and output directories. Free
// space shortfalls are logged as warnings; access failures stop the job.
func (m *Manager) runPreflightChecks(logger *slog.Logger, req job.Request) error {
	results := preflight.ForJob(req.WorkDir, req.Output.Dir)
	var failures []string
	for _, r := range results {
		switch {
		case !r.Passed:
			logger.Error("preflight check failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_failed"),
				logging.String(logging.FieldErrorHint, "fix the reported directory and resubmit"),
			)
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		case r.Warning:
			logging.WarnWithContext(logger, "preflight warning", "preflight_warning",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldImpact, "the job may run out of disk space"),
			)
		default:
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
		}
	}
	if len(failures) > 0 {
		return services.Wrap(services.KindValidation, string(job.StagePrepare), "preflight", strings.Join(failures, "; "), nil)
	}
	return nil
}
