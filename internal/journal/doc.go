// Package journal keeps a local history of launches in SQLite.
//
// Each mptx invocation that starts an entry point records one row keyed by
// its run ID. Exec launches never come back to finish their row because the
// launcher process is replaced; supervised and child launches fill in the
// exit code when the application stops. The schema lives in embedded SQL
// migrations applied on Open.
package journal
