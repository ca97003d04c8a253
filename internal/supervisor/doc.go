// Package supervisor runs the web UI headless on a loopback port and owns
// its lifetime.
//
// Run holds a per-project lock, starts the interpreter in its own process
// group with output captured to a log file, polls the HTTP endpoint until
// it answers, and tears the whole group down (SIGTERM, then SIGKILL after a
// grace period) when the context ends. If the server never becomes ready the
// captured output is replayed so the failure is visible.
package supervisor
