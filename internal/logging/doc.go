// Package logging assembles structured slog loggers and formatting helpers used
// across dvdmaker.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can automatically
// tag log lines with job IDs, stages, and correlation IDs. StreamHub is the
// per-job append-only sink for external tool output, readable by observers
// while the job runs.
package logging
