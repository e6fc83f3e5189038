package job

import (
	"time"

	"dvdmaker/internal/services"
)

// Result is the terminal report of a job.
type Result struct {
	JobID            string
	Success          bool
	State            Stage
	VideoTSPath      string
	ISOPath          string
	VideoBitrateKbps int
	Err              error
	WorkDir          string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// ErrorKind returns the classification of a failed result.
func (r Result) ErrorKind() services.Kind {
	return services.KindOf(r.Err)
}

// Duration returns the wall time spent on the job.
func (r Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
