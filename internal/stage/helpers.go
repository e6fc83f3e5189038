package stage

import (
	"context"

	"dvdmaker/internal/job"
	"dvdmaker/internal/services"
)

// CheckCancelled returns a cancellation error for stage when ctx is done.
func CheckCancelled(ctx context.Context, stage job.Stage) error {
	if err := ctx.Err(); err != nil {
		return services.Cancelled(string(stage), err)
	}
	return nil
}

// Fail tags err with the stage name so the failure report always names it.
func Fail(stage job.Stage, err error) error {
	return services.Tag(err, string(stage))
}
