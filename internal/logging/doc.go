// Package logging assembles structured slog loggers and formatting helpers used
// across sopgen.
//
// Console output goes through tint (colour only when stderr is a terminal),
// JSON output uses the standard slog JSON handler with short key names, and a
// per-run JSON file can be teed alongside either. Context helpers tag lines
// with run IDs, stages and HTTP correlation IDs. NewNop serves tests and
// wiring code that cannot fail.
package logging
