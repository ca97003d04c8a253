// Package envconf prepares the process environment for the Python video
// application before any of its entry points start.
//
// Configure locates the active environment prefix (CONDA_PREFIX by default),
// prepends a discovered cuDNN library directory to the dynamic-library search
// path, and assigns tuning variables with default-if-unset semantics. A value
// the caller already exported is never replaced, and a second Configure call
// over the same environment is a no-op. Failures to find the prefix or the
// cuDNN directory are reported as warnings; they never stop a launch.
//
// The package works against the Environ interface so the launcher can build
// a child environment without mutating its own process.
package envconf
