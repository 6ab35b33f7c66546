// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers for each failure kind (unreadable media,
//     extraction failure, generation service failure, invalid schema) plus the
//     Wrap helper that records which stage failed and why.
//   - ExitCode, which turns a fatal pipeline error into a non-zero process
//     status.
//
// Use these helpers when wiring new stage logic so error reporting stays
// uniform across the pipeline.
package services
