package stage

import (
	"context"

	"dvdmaker/internal/job"
)

// Handler describes the contract the workflow manager needs from each stage.
type Handler interface {
	Prepare(context.Context, *job.Run) error
	Execute(context.Context, *job.Run) error
	HealthCheck(context.Context) Health
}
