// Package logging assembles structured slog loggers and formatting helpers used
// across mptx.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and tags every record with the launch run ID so terminal status lines and
// the per-run JSON file can be correlated. Credential-like attributes are
// masked in every format. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// data with the same shape as the rest of the launcher.
package logging
