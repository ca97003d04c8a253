// Package main hosts the mptx CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration and the project root once,
// builds a launcher for the requested entry point, and hands control to the
// Python application. serve supervises the web UI headless. Supporting
// commands inspect the prepared environment (env), check the runtime
// (doctor), list launch history (history), show captured server output
// (logs), and scaffold configuration (config).
//
// Keep this package thin: behaviour belongs in internal packages and is
// surfaced here through flags and rendering only.
package main
