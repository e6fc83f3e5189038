// Package services defines shared utilities consumed by the pipeline stages
// and the external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - The typed stage error with its kind markers (validation, tool missing,
//     tool execution, output integrity, filesystem, cancelled) so callers can
//     classify failures with errors.Is.
//
// Use these helpers when wiring new stage logic so failure reporting stays
// uniform across the pipeline.
package services
