// Package preflight provides readiness checks for the project checkout and
// the Python runtime that mptx launches.
//
// The "mptx doctor" command runs RunAll against the same prepared
// environment a launch would use, so the checks see the caller's variables,
// the .env overlay, configured defaults, and the activated virtualenv.
// Failures are reported, never fixed.
package preflight
