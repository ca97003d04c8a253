// Package launcher turns a target name into a running Python entry point.
//
// A launch resolves the project root from the executable location (or an
// explicit override), snapshots the process environment, overlays the
// project .env file, runs the environment configurator, activates a project
// virtualenv when one exists, and finally hands control to the interpreter.
// On unix the handoff is execve, so the application's exit status is the
// launcher's. Elsewhere the interpreter runs as a child and its exit code is
// returned as an *ExitError.
package launcher
