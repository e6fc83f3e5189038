package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/services"
)

func (m *Manager) handleFailure(logger *slog.Logger, run *job.Run, stageErr error) {
	details := services.Details(stageErr)
	if details.Kind == services.KindCancelled {
		logger.Info("job cancelled",
			logging.String(logging.FieldEventType, "job_cancelled"),
			logging.Stage(details.Stage),
			logging.String("work_dir", run.Workspace.Root),
		)
		return
	}
	attrs := []logging.Attr{
		logging.Alert("stage_failure"),
		logging.Stage(details.Stage),
		logging.Tool(details.Tool),
		logging.String(logging.FieldErrorKind, string(details.Kind)),
		logging.String("error_operation", details.Operation),
		logging.String("error_message", strings.TrimSpace(details.Message)),
		logging.String(logging.FieldErrorHint, failureHint(details)),
		logging.String("work_dir", run.Workspace.Root),
	}
	if details.Kind == services.KindToolExecution {
		attrs = append(attrs, logging.Int("exit_code", details.ExitCode))
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	logging.ErrorWithContext(logger, "job failed", "stage_failure", attrs...)
}

// failureMessage is the one-line summary placed on the terminal snapshot.
func failureMessage(err error) string {
	details := services.Details(err)
	if details.Kind == services.KindCancelled {
		return "Cancelled"
	}
	stageName := details.Stage
	if stageName == "" {
		stageName = "workflow"
	}
	message := strings.TrimSpace(details.Message)
	if message == "" && err != nil {
		message = strings.TrimSpace(strings.SplitN(err.Error(), "\n", 2)[0])
	}
	if details.Tool != "" {
		return fmt.Sprintf("%s failed (%s): %s", stageName, details.Tool, message)
	}
	return fmt.Sprintf("%s failed: %s", stageName, message)
}

func failureHint(details services.ErrorDetails) string {
	switch details.Kind {
	case services.KindToolMissing:
		return "install the tool into the tools directory or add a [[tools.download]] entry"
	case services.KindToolExecution:
		return "inspect the job log for the tool output"
	case services.KindOutputIntegrity:
		return "the tool reported success but produced unusable output; inspect the job log"
	case services.KindValidation:
		return "fix the request and resubmit"
	default:
		return "check permissions and free space on the work and output directories"
	}
}
