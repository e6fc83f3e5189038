// Package workflow runs a conversion job through the pipeline stages.
//
// The Manager validates the request, creates the job workspace and then moves
// the job through Prepare, Probe, Transcode, Author, Validate and the
// optional Export and ISO stages on a dedicated goroutine. Progress snapshots
// are clamped into per-stage percentage bands and never decrease. Every tool
// line and structured log record of the job is published to a per-job
// StreamHub that also appends to <log_dir>/jobs/<job id>.log.
//
// Cancellation is checked before every stage and before every source inside
// a stage; a cancelled job always ends in Cancelled, never Failed. Failures
// carry the stage, tool and cause and no partial artifact is promoted to the
// output directory.
//
// Only one job runs at a time. Submitting while a job is active returns
// ErrJobAlreadyRunning.
package workflow
